package services

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskflow-app/taskflow/pkg/apperrors"
	"github.com/taskflow-app/taskflow/pkg/models"
	"github.com/taskflow-app/taskflow/pkg/repositories"
)

func init() {
	bcryptCost = bcrypt.MinCost
}

type grantKey struct {
	project uuid.UUID
	user    uuid.UUID
}

// memState is the copyable part of memStore.
type memState struct {
	users         map[uuid.UUID]models.User
	roles         map[uuid.UUID][]string
	projects      map[uuid.UUID]models.Project
	grants        map[grantKey]time.Time
	tasks         map[uuid.UUID]models.Task
	comments      map[uuid.UUID]models.Comment
	notifications map[uuid.UUID]models.Notification
}

func (s memState) clone() memState {
	roles := make(map[uuid.UUID][]string, len(s.roles))
	for k, v := range s.roles {
		roles[k] = slices.Clone(v)
	}
	return memState{
		users:         maps.Clone(s.users),
		roles:         roles,
		projects:      maps.Clone(s.projects),
		grants:        maps.Clone(s.grants),
		tasks:         maps.Clone(s.tasks),
		comments:      maps.Clone(s.comments),
		notifications: maps.Clone(s.notifications),
	}
}

// memStore is an in-memory stand-in for the PostgreSQL repositories with the
// same constraint behaviour: unique usernames and emails, one grant per pair,
// cascading deletes.
type memStore struct {
	memState
	clock time.Time

	// Inject failures by operation name, e.g. "GrantMany".
	failOn map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		memState: memState{
			users:         map[uuid.UUID]models.User{},
			roles:         map[uuid.UUID][]string{},
			projects:      map[uuid.UUID]models.Project{},
			grants:        map[grantKey]time.Time{},
			tasks:         map[uuid.UUID]models.Task{},
			comments:      map[uuid.UUID]models.Comment{},
			notifications: map[uuid.UUID]models.Notification{},
		},
		clock:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		failOn: map[string]error{},
	}
}

// now returns a strictly increasing timestamp so ordering is deterministic.
func (m *memStore) now() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) fail(op string) error {
	return m.failOn[op]
}

// fakeTx runs fn directly and restores the store snapshot when fn fails.
type fakeTx struct {
	store *memStore
	calls int
}

func (f *fakeTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	snapshot := f.store.memState.clone()
	if err := fn(ctx); err != nil {
		f.store.memState = snapshot
		return err
	}
	return nil
}

// ---- users ----

type memUserRepo struct{ *memStore }

func (r memUserRepo) withRoles(u models.User) *models.User {
	u.Roles = slices.Clone(r.roles[u.ID])
	if u.Roles == nil {
		u.Roles = []string{}
	}
	sort.Strings(u.Roles)
	return &u
}

func (r memUserRepo) taken(id uuid.UUID, username, email string) bool {
	for _, u := range r.users {
		if u.ID == id {
			continue
		}
		if strings.EqualFold(u.Username, username) || strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (r memUserRepo) Create(ctx context.Context, user *models.User) error {
	if err := r.fail("CreateUser"); err != nil {
		return err
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if r.taken(user.ID, user.Username, user.Email) {
		return fmt.Errorf("%w: username or email already registered", apperrors.ErrConflict)
	}
	user.CreatedAt = r.now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	stored.Roles = nil
	r.users[user.ID] = stored
	return nil
}

func (r memUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return r.withRoles(u), nil
}

func (r memUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Username, username) {
			return r.withRoles(u), nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r memUserRepo) List(ctx context.Context) ([]*models.User, error) {
	out := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, r.withRoles(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r memUserRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.User, error) {
	out := make([]*models.User, 0, len(ids))
	for _, u := range r.users {
		if slices.Contains(ids, u.ID) {
			out = append(out, r.withRoles(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r memUserRepo) ListIDsWithRole(ctx context.Context, role string) ([]uuid.UUID, error) {
	if err := r.fail("ListIDsWithRole"); err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	for id, roles := range r.roles {
		if slices.Contains(roles, role) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r memUserRepo) Update(ctx context.Context, user *models.User) error {
	existing, ok := r.users[user.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if r.taken(user.ID, user.Username, user.Email) {
		return fmt.Errorf("%w: username or email already registered", apperrors.ErrConflict)
	}
	existing.Username = user.Username
	existing.Email = user.Email
	existing.PasswordHash = user.PasswordHash
	existing.UpdatedAt = r.now()
	r.users[user.ID] = existing
	return nil
}

func (r memUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.users[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.users, id)
	delete(r.roles, id)
	for pid, p := range r.projects {
		if p.OwnerID == id {
			memProjectRepo(r).cascade(pid)
		}
	}
	for k := range r.grants {
		if k.user == id {
			delete(r.grants, k)
		}
	}
	for tid, t := range r.tasks {
		if t.IsAssignedTo(id) {
			t.AssignedUserID = nil
			r.tasks[tid] = t
		}
	}
	for cid, c := range r.comments {
		if c.UserID == id {
			delete(r.comments, cid)
		}
	}
	for nid, n := range r.notifications {
		if n.UserID == id {
			delete(r.notifications, nid)
		}
	}
	return nil
}

func (r memUserRepo) AddRole(ctx context.Context, userID uuid.UUID, role string) error {
	if err := r.fail("AddRole"); err != nil {
		return err
	}
	if _, ok := r.users[userID]; !ok {
		return apperrors.ErrNotFound
	}
	if !slices.Contains(r.roles[userID], role) {
		r.roles[userID] = append(r.roles[userID], role)
	}
	return nil
}

// ---- projects ----

type memProjectRepo struct{ *memStore }

func (r memProjectRepo) Create(ctx context.Context, project *models.Project) error {
	if err := r.fail("CreateProject"); err != nil {
		return err
	}
	if _, ok := r.users[project.OwnerID]; !ok {
		return fmt.Errorf("%w: owner does not exist", apperrors.ErrInvalidInput)
	}
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	project.CreatedAt = r.now()
	project.UpdatedAt = project.CreatedAt
	r.projects[project.ID] = *project
	return nil
}

func (r memProjectRepo) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	p, ok := r.projects[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

func (r memProjectRepo) Update(ctx context.Context, project *models.Project) error {
	existing, ok := r.projects[project.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	existing.Name = project.Name
	existing.Description = project.Description
	existing.UpdatedAt = r.now()
	r.projects[project.ID] = existing
	return nil
}

func (r memProjectRepo) cascade(projectID uuid.UUID) {
	delete(r.projects, projectID)
	for k := range r.grants {
		if k.project == projectID {
			delete(r.grants, k)
		}
	}
	for tid, t := range r.tasks {
		if t.ProjectID == projectID {
			delete(r.tasks, tid)
			for cid, c := range r.comments {
				if c.TaskID == tid {
					delete(r.comments, cid)
				}
			}
		}
	}
	for nid, n := range r.notifications {
		if n.ProjectID == projectID {
			delete(r.notifications, nid)
		}
	}
}

func (r memProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.projects[id]; !ok {
		return apperrors.ErrNotFound
	}
	r.cascade(id)
	return nil
}

func (r memProjectRepo) sorted(keep func(models.Project) bool) []*models.Project {
	out := make([]*models.Project, 0)
	for _, p := range r.projects {
		if keep(p) {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r memProjectRepo) ListAll(ctx context.Context) ([]*models.Project, error) {
	return r.sorted(func(models.Project) bool { return true }), nil
}

func (r memProjectRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Project, error) {
	return r.sorted(func(p models.Project) bool { return p.OwnerID == ownerID }), nil
}

func (r memProjectRepo) ListVisible(ctx context.Context, userID uuid.UUID) ([]*models.ProjectSummary, error) {
	visible := r.sorted(func(p models.Project) bool {
		_, ok := r.grants[grantKey{p.ID, userID}]
		return ok
	})

	out := make([]*models.ProjectSummary, 0, len(visible))
	for _, p := range visible {
		s := &models.ProjectSummary{Project: *p, OwnerUsername: r.users[p.OwnerID].Username}
		for _, t := range r.tasks {
			if t.ProjectID == p.ID {
				s.TaskCount++
			}
		}
		for _, n := range r.notifications {
			if n.ProjectID == p.ID && n.UserID == userID && !n.IsRead {
				s.UnreadNotificationsCount++
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// ---- visibility ----

type memVisibilityRepo struct{ *memStore }

func (r memVisibilityRepo) Grant(ctx context.Context, projectID, userID uuid.UUID) error {
	if err := r.fail("Grant"); err != nil {
		return err
	}
	if _, ok := r.projects[projectID]; !ok {
		return fmt.Errorf("%w: project or user does not exist", apperrors.ErrInvalidInput)
	}
	if _, ok := r.users[userID]; !ok {
		return fmt.Errorf("%w: project or user does not exist", apperrors.ErrInvalidInput)
	}
	key := grantKey{projectID, userID}
	if _, ok := r.grants[key]; !ok {
		r.grants[key] = r.now()
	}
	return nil
}

func (r memVisibilityRepo) GrantMany(ctx context.Context, projectID uuid.UUID, userIDs []uuid.UUID) error {
	if err := r.fail("GrantMany"); err != nil {
		return err
	}
	for _, id := range userIDs {
		if err := r.Grant(ctx, projectID, id); err != nil {
			return err
		}
	}
	return nil
}

func (r memVisibilityRepo) Exists(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	_, ok := r.grants[grantKey{projectID, userID}]
	return ok, nil
}

func (r memVisibilityRepo) ListUserIDs(ctx context.Context, projectID uuid.UUID) ([]uuid.UUID, error) {
	type entry struct {
		id uuid.UUID
		at time.Time
	}
	var entries []entry
	for k, at := range r.grants {
		if k.project == projectID {
			entries = append(entries, entry{k.user, at})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at.Before(entries[j].at) })
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.id)
	}
	return ids, nil
}

func (r memVisibilityRepo) count(projectID, userID uuid.UUID) int {
	if _, ok := r.grants[grantKey{projectID, userID}]; ok {
		return 1
	}
	return 0
}

// ---- tasks ----

type memTaskRepo struct{ *memStore }

func (r memTaskRepo) checkRefs(task *models.Task) error {
	if _, ok := r.projects[task.ProjectID]; !ok {
		return fmt.Errorf("%w: project or assignee does not exist", apperrors.ErrInvalidInput)
	}
	if task.AssignedUserID != nil {
		if _, ok := r.users[*task.AssignedUserID]; !ok {
			return fmt.Errorf("%w: project or assignee does not exist", apperrors.ErrInvalidInput)
		}
	}
	return nil
}

func (r memTaskRepo) Create(ctx context.Context, task *models.Task) error {
	if err := r.checkRefs(task); err != nil {
		return err
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	task.CreatedAt = r.now()
	task.UpdatedAt = task.CreatedAt
	r.tasks[task.ID] = *task
	return nil
}

func (r memTaskRepo) Get(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	t, ok := r.tasks[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &t, nil
}

func (r memTaskRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Task, error) {
	out := make([]*models.Task, 0)
	for _, t := range r.tasks {
		if t.ProjectID == projectID {
			t := t
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memTaskRepo) Update(ctx context.Context, task *models.Task) error {
	if _, ok := r.tasks[task.ID]; !ok {
		return apperrors.ErrNotFound
	}
	if err := r.checkRefs(task); err != nil {
		return err
	}
	task.UpdatedAt = r.now()
	r.tasks[task.ID] = *task
	return nil
}

func (r memTaskRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.TaskStatus) error {
	t, ok := r.tasks[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	t.Status = status
	r.tasks[id] = t
	return nil
}

func (r memTaskRepo) UpdateAssignee(ctx context.Context, id uuid.UUID, userID *uuid.UUID) error {
	t, ok := r.tasks[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	t.AssignedUserID = userID
	r.tasks[id] = t
	return nil
}

func (r memTaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.tasks[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.tasks, id)
	for cid, c := range r.comments {
		if c.TaskID == id {
			delete(r.comments, cid)
		}
	}
	for nid, n := range r.notifications {
		if n.TaskID != nil && *n.TaskID == id {
			delete(r.notifications, nid)
		}
	}
	return nil
}

// ---- comments ----

type memCommentRepo struct{ *memStore }

func (r memCommentRepo) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.fail("CreateComment"); err != nil {
		return err
	}
	if _, ok := r.tasks[comment.TaskID]; !ok {
		return fmt.Errorf("%w: task or author does not exist", apperrors.ErrInvalidInput)
	}
	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}
	comment.AuthorUsername = r.users[comment.UserID].Username
	comment.CreatedAt = r.now()
	comment.UpdatedAt = comment.CreatedAt
	r.comments[comment.ID] = *comment
	return nil
}

func (r memCommentRepo) Get(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	c, ok := r.comments[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &c, nil
}

func (r memCommentRepo) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.Comment, error) {
	out := make([]*models.Comment, 0)
	for _, c := range r.comments {
		if c.TaskID == taskID {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memCommentRepo) UpdateText(ctx context.Context, id uuid.UUID, text string) error {
	c, ok := r.comments[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	c.Text = text
	c.UpdatedAt = r.now()
	r.comments[id] = c
	return nil
}

func (r memCommentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.comments[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.comments, id)
	return nil
}

// ---- notifications ----

type memNotificationRepo struct{ *memStore }

func (r memNotificationRepo) CreateMany(ctx context.Context, notifications []*models.Notification) error {
	if err := r.fail("CreateNotifications"); err != nil {
		return err
	}
	for _, n := range notifications {
		if n.ID == uuid.Nil {
			n.ID = uuid.New()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = r.now()
		}
		r.notifications[n.ID] = *n
	}
	return nil
}

func (r memNotificationRepo) Get(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	n, ok := r.notifications[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &n, nil
}

func (r memNotificationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Notification, error) {
	out := make([]*models.Notification, 0)
	for _, n := range r.notifications {
		if n.UserID == userID {
			n := n
			n.ProjectName = r.projects[n.ProjectID].Name
			if n.TaskID != nil {
				n.TaskTitle = r.tasks[*n.TaskID].Title
			}
			out = append(out, &n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memNotificationRepo) SetRead(ctx context.Context, id uuid.UUID, read bool) error {
	n, ok := r.notifications[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	n.IsRead = read
	r.notifications[id] = n
	return nil
}

func (r memNotificationRepo) CountUnread(ctx context.Context, projectID, userID uuid.UUID) (int, error) {
	count := 0
	for _, n := range r.notifications {
		if n.ProjectID == projectID && n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

var (
	_ repositories.UserRepository         = memUserRepo{}
	_ repositories.ProjectRepository      = memProjectRepo{}
	_ repositories.VisibilityRepository   = memVisibilityRepo{}
	_ repositories.TaskRepository         = memTaskRepo{}
	_ repositories.CommentRepository      = memCommentRepo{}
	_ repositories.NotificationRepository = memNotificationRepo{}
)

// testEnv wires every service to one memStore.
type testEnv struct {
	t     *testing.T
	ctx   context.Context
	store *memStore
	tx    *fakeTx

	auth          AuthService
	users         UserService
	visibility    VisibilityService
	projects      ProjectService
	notifications NotificationService
	tasks         TaskService
	comments      CommentService
}

// stubIssuer returns a fixed token for every user.
type stubIssuer struct {
	err error
}

func (s stubIssuer) Issue(user *models.User) (string, time.Time, error) {
	if s.err != nil {
		return "", time.Time{}, s.err
	}
	return "token-for-" + user.Username, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	tx := &fakeTx{store: store}
	logger := zap.NewNop()

	userRepo := memUserRepo{store}
	projectRepo := memProjectRepo{store}
	taskRepo := memTaskRepo{store}
	visibility := NewVisibilityService(memVisibilityRepo{store})
	notifications := NewNotificationService(memNotificationRepo{store}, projectRepo, taskRepo, visibility, tx, logger)

	return &testEnv{
		t:             t,
		ctx:           context.Background(),
		store:         store,
		tx:            tx,
		auth:          NewAuthService(userRepo, tx, stubIssuer{}, logger),
		users:         NewUserService(userRepo, tx, logger),
		visibility:    visibility,
		projects:      NewProjectService(projectRepo, userRepo, visibility, tx, logger),
		notifications: notifications,
		tasks:         NewTaskService(taskRepo, projectRepo, userRepo, visibility, logger),
		comments:      NewCommentService(memCommentRepo{store}, taskRepo, visibility, notifications, tx, logger),
	}
}

func (e *testEnv) register(username string) *models.User {
	e.t.Helper()
	u, err := e.auth.Register(e.ctx, username, username+"@example.com", "password123")
	if err != nil {
		e.t.Fatalf("register %s: %v", username, err)
	}
	return u
}

func (e *testEnv) registerAdmin(username string) *models.User {
	e.t.Helper()
	u, err := e.users.EnsureAdmin(e.ctx, username, username+"@example.com", "password123")
	if err != nil {
		e.t.Fatalf("ensure admin %s: %v", username, err)
	}
	return u
}

func (e *testEnv) createProject(owner *models.User, name string) *models.Project {
	e.t.Helper()
	p, err := e.projects.Create(e.ctx, owner.ID, name, "")
	if err != nil {
		e.t.Fatalf("create project %s: %v", name, err)
	}
	return p
}

func (e *testEnv) createTask(caller *models.User, project *models.Project, title string, assignee *uuid.UUID) *models.Task {
	e.t.Helper()
	task, err := e.tasks.Create(e.ctx, caller.ID, TaskInput{
		ProjectID:      project.ID,
		Title:          title,
		DueDate:        time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		AssignedUserID: assignee,
	})
	if err != nil {
		e.t.Fatalf("create task %s: %v", title, err)
	}
	return task
}

func (e *testEnv) unread(projectID, userID uuid.UUID) int {
	e.t.Helper()
	n, _ := memNotificationRepo{e.store}.CountUnread(e.ctx, projectID, userID)
	return n
}
