package application

import (
	"errors"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubController struct{ key string }

func (c stubController) Register(*mux.Router) {}
func (c stubController) Key() string          { return c.key }

type greeter struct{ name string }

type stubModule struct {
	name string
	err  error
}

func (m stubModule) Name() string { return m.name }
func (m stubModule) Register(app Application) error {
	if m.err != nil {
		return m.err
	}
	app.RegisterControllers(stubController{key: m.name})
	return nil
}

func quietApp() Application {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return New(&ApplicationOptions{Logger: logger})
}

func TestApplication_ControllersKeepRegistrationOrder(t *testing.T) {
	app := quietApp()
	app.RegisterControllers(stubController{"b"}, stubController{"a"}, stubController{"b"})

	keys := make([]string, 0)
	for _, c := range app.Controllers() {
		keys = append(keys, c.Key())
	}
	assert.Equal(t, []string{"b", "a"}, keys)
}

func TestApplication_ServiceRegistry(t *testing.T) {
	app := quietApp()
	svc := &greeter{name: "hi"}
	app.RegisterServices(svc)

	got := app.Service(greeter{}).(*greeter)
	assert.Same(t, svc, got)
	assert.Panics(t, func() { app.Service(stubController{}) })
}

func TestLoadModules_StopsAtFirstError(t *testing.T) {
	app := quietApp()
	err := LoadModules(app, stubModule{name: "one"}, stubModule{name: "two", err: errors.New("boom")}, stubModule{name: "three"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "module two")
	assert.Len(t, app.Controllers(), 1)
}
