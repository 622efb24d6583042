package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/DavidFields1/auth-api/internal/core/auth"
	"github.com/DavidFields1/auth-api/internal/domain"
	"github.com/DavidFields1/auth-api/pkg/utils"
)

// memRepo 内存版用户仓库，email 唯一
type memRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.User
	byEmail map[string]string

	// 测试钩子：让 FindByEmail 第一次返回空，模拟并发建号
	missFirstEmailLookup bool
}

func newMemRepo() *memRepo {
	return &memRepo{byID: map[string]*domain.User{}, byEmail: map[string]string{}}
}

func clone(u *domain.User) *domain.User {
	c := *u
	c.Roles = append([]domain.Role(nil), u.Roles...)
	return &c
}

func (r *memRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	email := domain.NormalizeEmail(u.Email)
	if _, ok := r.byEmail[email]; ok {
		return &domain.DuplicateEmailError{Detail: "Key (email)=(" + email + ") already exists."}
	}
	u.Email = email
	if u.ID == "" {
		u.ID = utils.NewID()
	}
	if len(u.Roles) == 0 {
		u.Roles = []domain.Role{domain.RoleUser}
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	r.byID[u.ID] = clone(u)
	r.byEmail[email] = u.ID
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return clone(u), nil
}

func (r *memRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.missFirstEmailLookup {
		r.missFirstEmailLookup = false
		return nil, nil
	}
	id, ok := r.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	return clone(r.byID[id]), nil
}

func (r *memRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *memRepo) SetActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.IsActive = active
	return nil
}

func (r *memRepo) SetRoles(_ context.Context, id string, roles []domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Roles = append([]domain.Role(nil), roles...)
	return nil
}

func (r *memRepo) List(_ context.Context, q domain.ListQuery) ([]domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, u := range r.byID {
		if q.Q == "" || strings.Contains(u.Email, strings.ToLower(q.Q)) {
			out = append(out, *clone(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	total := int64(len(out))
	if q.Offset < len(out) {
		out = out[q.Offset:]
	} else {
		out = nil
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, total, nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	repo  *memRepo
	jwt   *auth.JWTer
	clock *fakeClock
	auth  *AuthService
	guard *Guard
}

func newFixture(ttl time.Duration) *fixture {
	repo := newMemRepo()
	clock := &fakeClock{t: time.Now()}
	j, err := auth.NewJWTer("test-secret", "auth-api", ttl)
	if err != nil {
		panic(err)
	}
	j.Now = clock.Now
	hasher := auth.BcryptHasher{Cost: 4}
	return &fixture{
		repo:  repo,
		jwt:   j,
		clock: clock,
		auth:  NewAuthService(repo, hasher, j, nil),
		guard: NewGuard(repo, j, nil),
	}
}

func signupInput(email string) SignupInput {
	return SignupInput{Email: email, Password: "Secr3t#pass", FirstName: "Ana", LastName: "Lima"}
}
