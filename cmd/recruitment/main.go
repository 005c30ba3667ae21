package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/commands"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/configuration"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conf := configuration.Use()
	err := commands.NewRecruitmentCommand(conf.Logger()).ExecuteContext(ctx)
	conf.Unload()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
