package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
)

type fakeUserRepo struct {
	users map[int64]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[int64]*models.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*models.User, bool, error) {
	u, ok := r.users[id]
	return u, ok, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, true, nil
		}
	}
	return nil, false, nil
}

func (r *fakeUserRepo) Create(ctx context.Context, tx *sql.Tx, user *models.User) (int64, error) {
	id := int64(len(r.users) + 1)
	user.ID = id
	r.users[id] = user
	return id, nil
}

func (r *fakeUserRepo) UpdateTier(ctx context.Context, userID int64, tier string) error {
	if u, ok := r.users[userID]; ok {
		u.Tier = tier
	}
	return nil
}

func (r *fakeUserRepo) AddCredits(ctx context.Context, userID int64, amount int) error {
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.Credits += amount
	return nil
}

func (r *fakeUserRepo) DeductCredits(ctx context.Context, userID int64, amount int) error {
	u, ok := r.users[userID]
	if !ok || u.Credits < amount {
		return repository.ErrInsufficientCredits
	}
	u.Credits -= amount
	return nil
}

func (r *fakeUserRepo) ListDueForRefill(ctx context.Context, before time.Time, limit int) ([]*models.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) MarkRefilled(ctx context.Context, userID int64, at time.Time) error {
	return nil
}

func (r *fakeUserRepo) Count(ctx context.Context) (int, error) {
	return len(r.users), nil
}

type fakePostRepo struct {
	mu         sync.Mutex
	posts      map[int64]*models.Post
	nextID     int64
	getByIDErr error
}

func newFakePostRepo(posts ...*models.Post) *fakePostRepo {
	r := &fakePostRepo{posts: make(map[int64]*models.Post)}
	for _, p := range posts {
		r.posts[p.ID] = p
		if p.ID > r.nextID {
			r.nextID = p.ID
		}
	}
	return r
}

func (r *fakePostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	post.ID = r.nextID
	r.posts[post.ID] = post
	return post.ID, nil
}

func (r *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.Post, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getByIDErr != nil {
		return nil, false, r.getByIDErr
	}
	p, ok := r.posts[id]
	return p, ok, nil
}

func (r *fakePostRepo) GetByIDAndUser(ctx context.Context, id, userID int64) (*models.Post, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok || p.UserID != userID {
		return nil, false, nil
	}
	return p, true, nil
}

func (r *fakePostRepo) ListByUserID(ctx context.Context, userID int64, status string) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Post
	for _, p := range r.posts {
		if p.UserID == userID && (status == "" || p.Status == status) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePostRepo) MarkScheduled(ctx context.Context, tx *sql.Tx, postID int64, scheduledDate time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok || p.Status != models.PostStatusDraft {
		return repository.ErrInvalidTransition
	}
	p.Status = models.PostStatusScheduled
	p.ScheduledDate = sql.NullTime{Time: scheduledDate, Valid: true}
	return nil
}

func (r *fakePostRepo) ClaimForPublish(ctx context.Context, postID int64, fromStatuses ...string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok {
		return false, nil
	}
	for _, s := range fromStatuses {
		if p.Status == s {
			p.Status = models.PostStatusPublishing
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePostRepo) MarkPosted(ctx context.Context, postID int64, platformPostID, postURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = models.PostStatusPosted
	p.PlatformPostID = sql.NullString{String: platformPostID, Valid: true}
	p.PostURL = sql.NullString{String: postURL, Valid: true}
	return nil
}

func (r *fakePostRepo) MarkFailed(ctx context.Context, postID int64, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = models.PostStatusFailed
	p.ErrorMessage = sql.NullString{String: errorMessage, Valid: true}
	return nil
}

func (r *fakePostRepo) RevertToDraft(ctx context.Context, postID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = models.PostStatusDraft
	p.ScheduledDate = sql.NullTime{}
	return nil
}

func (r *fakePostRepo) RevertToScheduled(ctx context.Context, postID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = models.PostStatusScheduled
	return nil
}

func (r *fakePostRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Post
	for _, p := range r.posts {
		if p.Status == models.PostStatusScheduled && p.ScheduledDate.Valid && !p.ScheduledDate.Time.After(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePostRepo) CountScheduled(ctx context.Context, userID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, p := range r.posts {
		if p.UserID == userID && p.Status == models.PostStatusScheduled {
			count++
		}
	}
	return count, nil
}

func (r *fakePostRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int)
	for _, p := range r.posts {
		counts[p.Status]++
	}
	return counts, nil
}

func (r *fakePostRepo) Remove(ctx context.Context, id, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, id)
	return nil
}

type fakeAccountRepo struct {
	accounts []*models.ConnectedAccount
}

func (r *fakeAccountRepo) Create(ctx context.Context, tx *sql.Tx, account *models.ConnectedAccount) (int64, error) {
	account.ID = int64(len(r.accounts) + 1)
	r.accounts = append(r.accounts, account)
	return account.ID, nil
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id int64) (*models.ConnectedAccount, bool, error) {
	for _, a := range r.accounts {
		if a.ID == id {
			return a, true, nil
		}
	}
	return nil, false, nil
}

func (r *fakeAccountRepo) GetActive(ctx context.Context, userID int64, platform string) (*models.ConnectedAccount, bool, error) {
	for _, a := range r.accounts {
		if a.UserID == userID && a.Platform == platform && a.IsActive {
			return a, true, nil
		}
	}
	return nil, false, nil
}

func (r *fakeAccountRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.ConnectedAccount, error) {
	var out []*models.ConnectedAccount
	for _, a := range r.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) CountByPlatform(ctx context.Context, userID int64) (map[string]int, error) {
	counts := make(map[string]int)
	for _, a := range r.accounts {
		if a.UserID == userID {
			counts[a.Platform]++
		}
	}
	return counts, nil
}

func (r *fakeAccountRepo) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	for _, a := range r.accounts {
		if a.ID == accountID && a.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAccountRepo) Remove(ctx context.Context, id int64) error {
	for i, a := range r.accounts {
		if a.ID == id {
			r.accounts = append(r.accounts[:i], r.accounts[i+1:]...)
			break
		}
	}
	return nil
}

type fakeUsageRepo struct {
	mu   sync.Mutex
	days map[string]*models.DailyUsage
}

func newFakeUsageRepo() *fakeUsageRepo {
	return &fakeUsageRepo{days: make(map[string]*models.DailyUsage)}
}

func usageKey(userID int64, date string) string {
	return fmt.Sprintf("%d/%s", userID, date)
}

func (r *fakeUsageRepo) day(userID int64, date string) *models.DailyUsage {
	key := usageKey(userID, date)
	d, ok := r.days[key]
	if !ok {
		d = &models.DailyUsage{UserID: userID, UsageDate: date, Platforms: make(map[string]int)}
		r.days[key] = d
	}
	return d
}

func (r *fakeUsageRepo) IncrementPost(ctx context.Context, userID int64, date, platform string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.day(userID, date)
	d.PostsTotal++
	d.Platforms[platform]++
	return nil
}

func (r *fakeUsageRepo) IncrementGeneration(ctx context.Context, userID int64, date string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.day(userID, date).Generations++
	return nil
}

func (r *fakeUsageRepo) GetDay(ctx context.Context, userID int64, date string) (*models.DailyUsage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.day(userID, date), nil
}

// fakeCreditLedger implements CreditService over in-memory state so
// orchestrator tests can assert what got charged without a database.
type fakeCreditLedger struct {
	mu           sync.Mutex
	balance      int
	reservations map[int64]string // postID -> status
	amounts      map[int64]int
	consumed     int
	deducted     int
	released     int
	releaseErr   error
}

func newFakeCreditLedger(balance int) *fakeCreditLedger {
	return &fakeCreditLedger{
		balance:      balance,
		reservations: make(map[int64]string),
		amounts:      make(map[int64]int),
	}
}

func (l *fakeCreditLedger) reservedSum() int {
	sum := 0
	for postID, status := range l.reservations {
		if status == models.ReservationActive {
			sum += l.amounts[postID]
		}
	}
	return sum
}

func (l *fakeCreditLedger) GetAvailableCredits(ctx context.Context, userID int64) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance - l.reservedSum(), nil
}

func (l *fakeCreditLedger) BalanceAndReserved(ctx context.Context, userID int64) (int, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance, l.reservedSum(), nil
}

func (l *fakeCreditLedger) Reserve(ctx context.Context, tx *sql.Tx, userID, postID int64, amount int, expiresAt time.Time) (*models.CreditReservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reservations[postID] == models.ReservationActive {
		return nil, repository.ErrDuplicateReservation
	}
	if l.balance-l.reservedSum() < amount {
		return nil, repository.ErrInsufficientCredits
	}
	l.reservations[postID] = models.ReservationActive
	l.amounts[postID] = amount
	return &models.CreditReservation{
		UserID:    userID,
		PostID:    postID,
		Amount:    amount,
		Status:    models.ReservationActive,
		ExpiresAt: expiresAt,
	}, nil
}

func (l *fakeCreditLedger) Consume(ctx context.Context, postID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reservations[postID] != models.ReservationActive {
		return repository.ErrNoActiveReservation
	}
	if l.balance < l.amounts[postID] {
		l.reservations[postID] = models.ReservationReleased
		l.released++
		return repository.ErrInsufficientCredits
	}
	l.reservations[postID] = models.ReservationConsumed
	l.balance -= l.amounts[postID]
	l.consumed++
	return nil
}

func (l *fakeCreditLedger) Release(ctx context.Context, postID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.releaseErr != nil {
		return l.releaseErr
	}
	if l.reservations[postID] == models.ReservationActive {
		l.reservations[postID] = models.ReservationReleased
		l.released++
	}
	return nil
}

func (l *fakeCreditLedger) AddCredits(ctx context.Context, userID int64, amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance += amount
	return nil
}

func (l *fakeCreditLedger) DeductCredits(ctx context.Context, userID int64, amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balance-l.reservedSum() < amount {
		return repository.ErrInsufficientCredits
	}
	l.balance -= amount
	l.deducted += amount
	return nil
}

// fakePublisher succeeds unless the platform is listed in failures.
type fakePublisher struct {
	mu       sync.Mutex
	failures map[string]string
	calls    []string
}

func (p *fakePublisher) Publish(ctx context.Context, account *models.ConnectedAccount, content PublishContent) (*PublishResult, error) {
	p.mu.Lock()
	p.calls = append(p.calls, account.Platform)
	p.mu.Unlock()
	if msg, ok := p.failures[account.Platform]; ok {
		return nil, errors.New(msg)
	}
	return &PublishResult{
		PlatformPostID: "ext-" + account.Platform,
		PostURL:        "https://" + account.Platform + ".example/post",
	}, nil
}

type fakeGenerator struct {
	content  string
	failWith error
	calls    int
}

func (g *fakeGenerator) GenerateContent(ctx context.Context, params GenerationParams) (string, error) {
	g.calls++
	if g.failWith != nil {
		return "", g.failWith
	}
	return g.content, nil
}

type fakeSubscriptionRepo struct {
	subs map[int64]*models.Subscription
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: make(map[int64]*models.Subscription)}
}

func (r *fakeSubscriptionRepo) GetByUserID(ctx context.Context, userID int64) (*models.Subscription, bool, error) {
	s, ok := r.subs[userID]
	return s, ok, nil
}

func (r *fakeSubscriptionRepo) Upsert(ctx context.Context, subscription *models.Subscription) error {
	if existing, ok := r.subs[subscription.UserID]; ok {
		subscription.AmountPaid += existing.AmountPaid
	}
	r.subs[subscription.UserID] = subscription
	return nil
}

func (r *fakeSubscriptionRepo) SumRevenue(ctx context.Context) (int, error) {
	total := 0
	for _, s := range r.subs {
		total += s.AmountPaid
	}
	return total, nil
}

type fakeEmitter struct {
	scheduled   []int64
	automations []int64
	failWith    error
}

func (e *fakeEmitter) EmitScheduledPost(ctx context.Context, jobID string, postID int64, runAt time.Time) error {
	if e.failWith != nil {
		return e.failWith
	}
	e.scheduled = append(e.scheduled, postID)
	return nil
}

func (e *fakeEmitter) EmitAutomationRule(ctx context.Context, jobID string, ruleID int64) error {
	if e.failWith != nil {
		return e.failWith
	}
	e.automations = append(e.automations, ruleID)
	return nil
}

func (e *fakeEmitter) EmitCreditCheck(ctx context.Context, jobID string) error {
	return e.failWith
}

type fakeJobRepo struct {
	jobs map[string]*models.JobRecord
}

func newFakeJobRepo(jobs ...*models.JobRecord) *fakeJobRepo {
	r := &fakeJobRepo{jobs: make(map[string]*models.JobRecord)}
	for _, j := range jobs {
		r.jobs[j.ID] = j
	}
	return r
}

func (r *fakeJobRepo) Create(ctx context.Context, job *models.JobRecord) error {
	r.jobs[job.ID] = job
	return nil
}

func (r *fakeJobRepo) GetByID(ctx context.Context, id string) (*models.JobRecord, bool, error) {
	j, ok := r.jobs[id]
	return j, ok, nil
}

func (r *fakeJobRepo) MarkRunning(ctx context.Context, id string) error {
	return r.setStatus(id, models.JobStatusRunning)
}

func (r *fakeJobRepo) MarkCompleted(ctx context.Context, id, result string) error {
	if err := r.setStatus(id, models.JobStatusCompleted); err != nil {
		return err
	}
	r.jobs[id].Result = sql.NullString{String: result, Valid: result != ""}
	return nil
}

func (r *fakeJobRepo) MarkFailed(ctx context.Context, id, errorMessage string) error {
	if err := r.setStatus(id, models.JobStatusFailed); err != nil {
		return err
	}
	r.jobs[id].ErrorMessage = sql.NullString{String: errorMessage, Valid: errorMessage != ""}
	return nil
}

func (r *fakeJobRepo) MarkPendingForRetry(ctx context.Context, id string) error {
	j, ok := r.jobs[id]
	if !ok || j.Status != models.JobStatusFailed {
		return repository.ErrInvalidTransition
	}
	j.Status = models.JobStatusPending
	j.RetryCount++
	return nil
}

func (r *fakeJobRepo) List(ctx context.Context, status string, limit int) ([]*models.JobRecord, error) {
	var out []*models.JobRecord
	for _, j := range r.jobs {
		if status == "" || j.Status == status {
			out = append(out, j)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, j := range r.jobs {
		counts[j.Status]++
	}
	return counts, nil
}

func (r *fakeJobRepo) setStatus(id, status string) error {
	j, ok := r.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	j.Status = status
	return nil
}

type fakeAutomationRepo struct {
	mu     sync.Mutex
	rules  map[int64]*models.AutomationRule
	nextID int64
}

func newFakeAutomationRepo(rules ...*models.AutomationRule) *fakeAutomationRepo {
	r := &fakeAutomationRepo{rules: make(map[int64]*models.AutomationRule)}
	for _, rule := range rules {
		r.rules[rule.ID] = rule
		if rule.ID > r.nextID {
			r.nextID = rule.ID
		}
	}
	return r
}

func (r *fakeAutomationRepo) Create(ctx context.Context, rule *models.AutomationRule) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	rule.ID = r.nextID
	r.rules[rule.ID] = rule
	return rule.ID, nil
}

func (r *fakeAutomationRepo) GetByID(ctx context.Context, id int64) (*models.AutomationRule, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	return rule, ok, nil
}

func (r *fakeAutomationRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.AutomationRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AutomationRule
	for _, rule := range r.rules {
		if rule.UserID == userID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeAutomationRepo) CountByUserID(ctx context.Context, userID int64) (int, error) {
	rules, _ := r.ListByUserID(ctx, userID)
	return len(rules), nil
}

func (r *fakeAutomationRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.AutomationRule, error) {
	return nil, nil
}

func (r *fakeAutomationRepo) SetActive(ctx context.Context, id int64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return repository.ErrNotFound
	}
	rule.IsActive = active
	return nil
}

func (r *fakeAutomationRepo) TouchLastRun(ctx context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return repository.ErrNotFound
	}
	rule.LastRunAt = sql.NullTime{Time: at, Valid: true}
	return nil
}

func (r *fakeAutomationRepo) Remove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rules, id)
	return nil
}
