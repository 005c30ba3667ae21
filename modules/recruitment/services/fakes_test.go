package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/aggregates/applicant"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/aggregates/employee"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/entities/blacklist"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/entities/configitem"
)

type fakeTx struct{}

func (fakeTx) InTx(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }

type fakeApplicantRepo struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]applicant.Record
}

func newFakeApplicantRepo() *fakeApplicantRepo {
	return &fakeApplicantRepo{rows: make(map[uint]applicant.Record)}
}

func (r *fakeApplicantRepo) put(rec applicant.Record) applicant.Applicant {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	rec.ID = r.nextID
	r.rows[rec.ID] = rec
	return applicant.Hydrate(rec)
}

func (r *fakeApplicantRepo) GetByID(ctx context.Context, id uint) (applicant.Applicant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[id]
	if !ok {
		return applicant.Applicant{}, applicant.ErrNotFound
	}
	return applicant.Hydrate(rec), nil
}

func (r *fakeApplicantRepo) GetPaginated(ctx context.Context, params *applicant.FindParams) ([]applicant.Applicant, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, 0, len(r.rows))
	for id, rec := range r.rows {
		if params.Status != "" && rec.Status != params.Status {
			continue
		}
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	out := []applicant.Applicant{}
	for i, id := range ids {
		if i < params.Offset || (params.Limit > 0 && len(out) == params.Limit) {
			continue
		}
		out = append(out, applicant.Hydrate(r.rows[uint(id)]))
	}
	return out, int64(len(ids)), nil
}

func (r *fakeApplicantRepo) Create(ctx context.Context, a applicant.Applicant) (applicant.Applicant, error) {
	return r.put(a.Record()), nil
}

func (r *fakeApplicantRepo) Update(ctx context.Context, a applicant.Applicant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[a.ID()]; !ok {
		return applicant.ErrNotFound
	}
	r.rows[a.ID()] = a.Record()
	return nil
}

func (r *fakeApplicantRepo) Transition(ctx context.Context, a applicant.Applicant, from applicant.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[a.ID()]
	if !ok {
		return applicant.ErrNotFound
	}
	if rec.Status != from {
		return applicant.ErrStatusChanged
	}
	r.rows[a.ID()] = a.Record()
	return nil
}

func (r *fakeApplicantRepo) MarkIdentityRolesAssigned(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[id]
	if !ok {
		return applicant.ErrNotFound
	}
	rec.IdentityRolesAssigned = true
	rec.UpdatedAt = time.Now()
	r.rows[id] = rec
	return nil
}

func (r *fakeApplicantRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return applicant.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

// fakeEmployeeRepo keeps a per-employee history counter standing in for
// absences and evaluations.
type fakeEmployeeRepo struct {
	mu      sync.Mutex
	nextID  uint
	rows    map[uint]employee.Record
	history map[uint]int
	creates int
	// afterLookup runs once, right after the first GetByExternalID.
	afterLookup func()
}

func newFakeEmployeeRepo() *fakeEmployeeRepo {
	return &fakeEmployeeRepo{rows: make(map[uint]employee.Record), history: make(map[uint]int)}
}

func (r *fakeEmployeeRepo) seed(e employee.Employee, history int) employee.Employee {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	rec := e.Record()
	rec.ID = r.nextID
	r.rows[rec.ID] = rec
	r.history[rec.ID] = history
	return employee.Hydrate(rec)
}

func (r *fakeEmployeeRepo) HistoryCount(ctx context.Context, employeeID uint) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history[employeeID], nil
}

func (r *fakeEmployeeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *fakeEmployeeRepo) GetByID(ctx context.Context, id uint) (employee.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[id]
	if !ok {
		return employee.Employee{}, employee.ErrNotFound
	}
	return employee.Hydrate(rec), nil
}

func (r *fakeEmployeeRepo) GetByExternalID(ctx context.Context, externalID string) (employee.Employee, error) {
	found, err := r.lookup(externalID)
	r.mu.Lock()
	hook := r.afterLookup
	r.afterLookup = nil
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return found, err
}

func (r *fakeEmployeeRepo) lookup(externalID string) (employee.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.rows {
		if rec.ExternalID == externalID {
			return employee.Hydrate(rec), nil
		}
	}
	return employee.Employee{}, employee.ErrNotFound
}

func (r *fakeEmployeeRepo) GetPaginated(ctx context.Context, params *employee.FindParams) ([]employee.Employee, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []employee.Employee{}
	for _, rec := range r.rows {
		if params != nil && params.Status != "" && rec.Status != params.Status {
			continue
		}
		out = append(out, employee.Hydrate(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, int64(len(out)), nil
}

func (r *fakeEmployeeRepo) Create(ctx context.Context, e employee.Employee) (employee.Employee, error) {
	r.mu.Lock()
	for _, rec := range r.rows {
		if rec.ExternalID == e.ExternalID() {
			r.mu.Unlock()
			return employee.Employee{}, employee.ErrDuplicateIdentity
		}
	}
	r.creates++
	r.mu.Unlock()
	return r.seed(e, 0), nil
}

func (r *fakeEmployeeRepo) Update(ctx context.Context, e employee.Employee) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[e.ID()]; !ok {
		return employee.ErrNotFound
	}
	r.rows[e.ID()] = e.Record()
	return nil
}

func (r *fakeEmployeeRepo) ListBadgeNumbers(ctx context.Context, prefix string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, rec := range r.rows {
		if rec.BadgeNumber != nil && strings.HasPrefix(*rec.BadgeNumber, prefix+"-") {
			out = append(out, *rec.BadgeNumber)
		}
	}
	return out, nil
}

func (r *fakeEmployeeRepo) ClaimBadge(ctx context.Context, employeeID uint, badge string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[employeeID]
	if !ok {
		return false, employee.ErrNotFound
	}
	for id, other := range r.rows {
		if id != employeeID && other.BadgeNumber != nil && *other.BadgeNumber == badge {
			return false, nil
		}
	}
	rec.BadgeNumber = &badge
	r.rows[employeeID] = rec
	return true, nil
}

func (r *fakeEmployeeRepo) ClearBadge(ctx context.Context, employeeID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[employeeID]
	if !ok {
		return employee.ErrNotFound
	}
	rec.BadgeNumber = nil
	r.rows[employeeID] = rec
	return nil
}

type fakeBlacklistRepo struct {
	mu      sync.Mutex
	nextID  uint
	entries []blacklist.Entry
	err     error
}

func (r *fakeBlacklistRepo) add(e blacklist.Entry) blacklist.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	e.ID = r.nextID
	r.entries = append(r.entries, e)
	return e
}

func (r *fakeBlacklistRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *fakeBlacklistRepo) FindMatching(ctx context.Context, externalID, handle string) ([]blacklist.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []blacklist.Entry
	for _, e := range r.entries {
		if e.Matches(externalID, handle) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeBlacklistRepo) CreateIfAbsent(ctx context.Context, e blacklist.Entry) (blacklist.Entry, bool, error) {
	r.mu.Lock()
	for _, existing := range r.entries {
		sameID := e.ExternalID != "" && existing.ExternalID == e.ExternalID
		sameHandle := e.ExternalID == "" && existing.ExternalID == "" && strings.EqualFold(existing.Handle, e.Handle)
		if sameID || sameHandle {
			r.mu.Unlock()
			return existing, false, nil
		}
	}
	r.mu.Unlock()
	return r.add(e), true, nil
}

func (r *fakeBlacklistRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return blacklist.ErrNotFound
}

func (r *fakeBlacklistRepo) List(ctx context.Context) ([]blacklist.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]blacklist.Entry, len(r.entries))
	copy(out, r.entries)
	return out, nil
}

type fakeConfigRepo struct {
	mu     sync.Mutex
	nextID uint
	items  map[uint]configitem.Item
	loads  int
	err    error
}

func newFakeConfigRepo() *fakeConfigRepo {
	return &fakeConfigRepo{items: make(map[uint]configitem.Item)}
}

// seed stores n active items of kind and returns their snapshot keys.
func (r *fakeConfigRepo) seed(kind configitem.Kind, n int) []string {
	keys := make([]string, 0, n)
	for i := 0; i < n; i++ {
		it, _ := r.Create(context.Background(), configitem.New(kind, fmt.Sprintf("%s %d", kind, i+1), i))
		keys = append(keys, it.Key())
	}
	return keys
}

func (r *fakeConfigRepo) loadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loads
}

func (r *fakeConfigRepo) ListActive(ctx context.Context, kind configitem.Kind) ([]configitem.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	if r.err != nil {
		return nil, r.err
	}
	var out []configitem.Item
	for _, it := range r.items {
		if it.Kind() == kind && it.IsActive() {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder() != out[j].SortOrder() {
			return out[i].SortOrder() < out[j].SortOrder()
		}
		return out[i].ID() < out[j].ID()
	})
	return out, nil
}

func (r *fakeConfigRepo) List(ctx context.Context, kind configitem.Kind) ([]configitem.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []configitem.Item
	for _, it := range r.items {
		if it.Kind() == kind {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func (r *fakeConfigRepo) GetByID(ctx context.Context, id uint) (configitem.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return configitem.Item{}, configitem.ErrNotFound
	}
	return it, nil
}

func (r *fakeConfigRepo) Create(ctx context.Context, item configitem.Item) (configitem.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	stored := configitem.Hydrate(r.nextID, item.Kind(), item.Label(), item.IsActive(), item.SortOrder(), time.Now(), time.Now())
	r.items[stored.ID()] = stored
	return stored, nil
}

func (r *fakeConfigRepo) Update(ctx context.Context, item configitem.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID()]; !ok {
		return configitem.ErrNotFound
	}
	r.items[item.ID()] = item
	return nil
}

func (r *fakeConfigRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return configitem.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

type grantCall struct {
	ExternalID string
	RoleID     string
}

type fakeProvider struct {
	mu          sync.Mutex
	grants      []grantCall
	nicknames   map[string]string
	failRoles   map[string]bool
	nicknameErr error
	inviteURL   string
	inviteErr   error
	members     []Member
	// onGrant runs before every GrantRole, outside the provider lock.
	onGrant func()
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		nicknames: make(map[string]string),
		failRoles: make(map[string]bool),
		inviteURL: "https://discord.gg/abc123",
	}
}

func (p *fakeProvider) grantCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.grants)
}

func (p *fakeProvider) GrantRole(ctx context.Context, externalID, roleID string) error {
	if p.onGrant != nil {
		p.onGrant()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failRoles[roleID] {
		return errors.New("missing permissions")
	}
	p.grants = append(p.grants, grantCall{ExternalID: externalID, RoleID: roleID})
	return nil
}

func (p *fakeProvider) SetNickname(ctx context.Context, externalID, nickname string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.nicknameErr != nil {
		return p.nicknameErr
	}
	p.nicknames[externalID] = nickname
	return nil
}

func (p *fakeProvider) CreateInvite(ctx context.Context, ttl time.Duration, maxUses int) (string, error) {
	if p.inviteErr != nil {
		return "", p.inviteErr
	}
	return p.inviteURL + "?ttl=" + strconv.Itoa(int(ttl.Seconds())) + "&uses=" + strconv.Itoa(maxUses), nil
}

func (p *fakeProvider) SearchMembers(ctx context.Context, query string, limit int) ([]Member, error) {
	return p.members, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []any
}

func (p *recordingPublisher) Publish(args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, args...)
}
func (p *recordingPublisher) Subscribe(handler interface{})   {}
func (p *recordingPublisher) Unsubscribe(handler interface{}) {}
func (p *recordingPublisher) Clear()                          {}
func (p *recordingPublisher) SubscribersCount() int           { return 0 }

func (p *recordingPublisher) snapshot() []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]any, len(p.events))
	copy(out, p.events)
	return out
}

type recordingBonus struct {
	mu    sync.Mutex
	calls []BonusAction
	err   error
}

func (b *recordingBonus) Trigger(ctx context.Context, operatorID uint, action BonusAction, applicantID uint) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, action)
	return b.err
}

type outboxRecord struct {
	Topic   string
	EventID uuid.UUID
	Payload any
}

type recordingOutbox struct {
	mu       sync.Mutex
	records  []outboxRecord
	err      error
	onRecord func(topic string)
}

func (o *recordingOutbox) Enqueue(ctx context.Context, topic string, eventID uuid.UUID, payload any) error {
	o.mu.Lock()
	if o.err != nil {
		o.mu.Unlock()
		return o.err
	}
	o.records = append(o.records, outboxRecord{Topic: topic, EventID: eventID, Payload: payload})
	hook := o.onRecord
	o.mu.Unlock()
	if hook != nil {
		hook(topic)
	}
	return nil
}

func (o *recordingOutbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.records)
}

func (o *recordingOutbox) topics() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.records))
	for _, r := range o.records {
		out = append(out, r.Topic)
	}
	return out
}
