package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/DavidFields1/auth-api/internal/core/cache"
	"github.com/DavidFields1/auth-api/internal/core/database"
	"github.com/DavidFields1/auth-api/internal/domain"
	"github.com/DavidFields1/auth-api/internal/feature/user"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewGorm(database.Opts{
		Driver:       "sqlite",
		DSN:          filepath.Join(t.TempDir(), "users.db") + "?_pragma=busy_timeout(5000)",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&user.UserModel{}))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func newUser(email string) *domain.User {
	return &domain.User{
		Email:        email,
		PasswordHash: "$2a$04$hash",
		FirstName:    "Ana",
		LastName:     "Lima",
		IsActive:     true,
		Roles:        []domain.Role{domain.RoleUser},
		Provider:     domain.ProviderEmail,
	}
}

func TestUserRepo_CreateAndFind(t *testing.T) {
	r := NewUserRepo(newTestDB(t))
	ctx := context.Background()

	u := newUser("  Ana@Example.com ")
	require.NoError(t, r.Create(ctx, u))
	assert.Len(t, u.ID, 32)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := r.FindByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "$2a$04$hash", got.PasswordHash)
	assert.Equal(t, []domain.Role{domain.RoleUser}, got.Roles)
	assert.True(t, got.IsActive)

	got, err = r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", got.Email)

	missing, err := r.FindByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
	missing, err = r.FindByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepo_GoogleAccountHasNoHash(t *testing.T) {
	r := NewUserRepo(newTestDB(t))
	ctx := context.Background()

	u := &domain.User{Email: "g@example.com", FirstName: "Gus", IsActive: true, Provider: domain.ProviderGoogle}
	require.NoError(t, r.Create(ctx, u))
	assert.Equal(t, []domain.Role{domain.RoleUser}, u.Roles)

	got, err := r.FindByEmail(ctx, "g@example.com")
	require.NoError(t, err)
	assert.Equal(t, "", got.PasswordHash)
	assert.Equal(t, domain.ProviderGoogle, got.Provider)
}

func TestUserRepo_DuplicateEmail(t *testing.T) {
	r := NewUserRepo(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, newUser("dup@example.com")))
	err := r.Create(ctx, newUser(" DUP@Example.com"))
	require.ErrorIs(t, err, domain.ErrDuplicateEmail)

	var de *domain.DuplicateEmailError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "Key (email)=(dup@example.com) already exists.", de.Detail)
}

func TestUserRepo_ConcurrentDuplicate(t *testing.T) {
	r := NewUserRepo(newTestDB(t))
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = r.Create(ctx, newUser("race@example.com"))
		}(i)
	}
	wg.Wait()

	ok, dup := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrDuplicateEmail):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dup)
}

func TestUserRepo_UpdatePasswordHashAndSetActive(t *testing.T) {
	r := NewUserRepo(newTestDB(t))
	ctx := context.Background()
	u := newUser("upd@example.com")
	require.NoError(t, r.Create(ctx, u))

	require.NoError(t, r.UpdatePasswordHash(ctx, u.ID, "$2a$04$new"))
	require.NoError(t, r.SetActive(ctx, u.ID, false))
	// 重复设置同一个值不算找不到
	require.NoError(t, r.SetActive(ctx, u.ID, false))

	got, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "$2a$04$new", got.PasswordHash)
	assert.False(t, got.IsActive)
	assert.Equal(t, "upd@example.com", got.Email)

	require.ErrorIs(t, r.UpdatePasswordHash(ctx, "missing", "x"), domain.ErrUserNotFound)
	require.ErrorIs(t, r.SetActive(ctx, "missing", true), domain.ErrUserNotFound)
}

func TestUserRepo_SetRoles(t *testing.T) {
	r := NewUserRepo(newTestDB(t))
	ctx := context.Background()
	u := newUser("roles@example.com")
	require.NoError(t, r.Create(ctx, u))

	require.NoError(t, r.SetRoles(ctx, u.ID, []domain.Role{domain.RoleUser, domain.RoleAdmin}))
	got, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Role{domain.RoleUser, domain.RoleAdmin}, got.Roles)
	assert.Equal(t, "roles@example.com", got.Email)

	require.ErrorIs(t, r.SetRoles(ctx, "missing", []domain.Role{domain.RoleAdmin}), domain.ErrUserNotFound)
}

func TestUserRepo_List(t *testing.T) {
	r := NewUserRepo(newTestDB(t))
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		u := newUser(fmt.Sprintf("u%d@example.com", i))
		if i == 3 {
			u.FirstName = "Zed"
		}
		require.NoError(t, r.Create(ctx, u))
	}

	all, total, err := r.List(ctx, domain.ListQuery{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, all, 2)

	found, total, err := r.List(ctx, domain.ListQuery{Q: "Zed"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, found, 1)
	assert.Equal(t, "u3@example.com", found[0].Email)

	found, total, err = r.List(ctx, domain.ListQuery{Q: "U1@"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "u1@example.com", found[0].Email)
}

func TestDuplicateDetail(t *testing.T) {
	d, ok := duplicateDetail(&pgconn.PgError{Code: "23505", Detail: "Key (email)=(a@b.com) already exists."}, "a@b.com")
	assert.True(t, ok)
	assert.Equal(t, "Key (email)=(a@b.com) already exists.", d)

	_, ok = duplicateDetail(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "23502"}), "a@b.com")
	assert.False(t, ok)

	d, ok = duplicateDetail(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@b.com' for key 'users.idx_users_email'"}, "a@b.com")
	assert.True(t, ok)
	assert.Contains(t, d, "Duplicate entry")

	_, ok = duplicateDetail(gorm.ErrDuplicatedKey, "a@b.com")
	assert.True(t, ok)

	_, ok = duplicateDetail(errors.New("connection refused"), "a@b.com")
	assert.False(t, ok)
}

func TestCachedUserRepo(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	inner := NewUserRepo(newTestDB(t))
	r := NewCachedUserRepo(inner, c, time.Minute, nil)
	ctx := context.Background()

	u := newUser("cache@example.com")
	require.NoError(t, r.Create(ctx, u))

	got, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Equal(t, "", got.PasswordHash)
	assert.True(t, mr.Exists("auth-api:user:"+u.ID+":0"))

	// 绕过装饰器直接改库，缓存仍是旧值
	require.NoError(t, inner.SetActive(ctx, u.ID, false))
	got, err = r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	// 经过装饰器写入会失效缓存
	require.NoError(t, r.SetActive(ctx, u.ID, false))
	gen, err := mr.Get("auth-api:user:gen:" + u.ID)
	require.NoError(t, err)
	assert.Equal(t, "1", gen)
	got, err = r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	assert.True(t, mr.Exists("auth-api:user:"+u.ID+":1"))

	require.NoError(t, r.UpdatePasswordHash(ctx, u.ID, "$2a$04$other"))
	assert.False(t, mr.Exists("auth-api:user:"+u.ID+":2"))

	byEmail, err := r.FindByEmail(ctx, "cache@example.com")
	require.NoError(t, err)
	assert.Equal(t, "$2a$04$other", byEmail.PasswordHash)

	// redis 不可用时回源
	mr.Close()
	got, err = r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

// slowFindRepo 第一次 FindByID 读完库后停住，模拟失效前已经在回源的请求
type slowFindRepo struct {
	domain.UserRepository
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (r *slowFindRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := r.UserRepository.FindByID(ctx, id)
	r.once.Do(func() {
		close(r.entered)
		<-r.release
	})
	return u, err
}

func TestCachedUserRepo_InFlightLoadDoesNotResurrect(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	base := NewUserRepo(newTestDB(t))
	ctx := context.Background()
	u := newUser("race@example.com")
	require.NoError(t, base.Create(ctx, u))

	slow := &slowFindRepo{UserRepository: base, entered: make(chan struct{}), release: make(chan struct{})}
	r := NewCachedUserRepo(slow, c, time.Minute, nil)

	done := make(chan *domain.User)
	go func() {
		got, _ := r.FindByID(ctx, u.ID)
		done <- got
	}()
	<-slow.entered

	require.NoError(t, r.SetActive(ctx, u.ID, false))
	close(slow.release)
	stale := <-done
	require.NotNil(t, stale)
	assert.True(t, stale.IsActive)

	got, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}
