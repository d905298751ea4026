package auth

import (
	"testing"

	"securewave_server/internal/dao/mysql/repository"
	"securewave_server/internal/dto/request"
	"securewave_server/internal/model"
	"securewave_server/pkg/errorx"
	"securewave_server/pkg/util/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubUserRepo 内存用户表
type stubUserRepo struct {
	users  map[int64]*model.UserInfo
	nextId int64
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[int64]*model.UserInfo), nextId: 1}
}

func (r *stubUserRepo) FindById(id int64) (*model.UserInfo, error) {
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, errorx.New(errorx.CodeNotFound, "user not found")
}

func (r *stubUserRepo) FindByUsername(username string) (*model.UserInfo, error) {
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errorx.New(errorx.CodeNotFound, "user not found")
}

func (r *stubUserRepo) Create(user *model.UserInfo) error {
	if user.Id == 0 {
		user.Id = r.nextId
		r.nextId++
	}
	r.users[user.Id] = user
	return nil
}

func (r *stubUserRepo) SetOnline(id int64, online bool) error {
	if u, ok := r.users[id]; ok {
		u.IsOnline = online
	}
	return nil
}

func newTestService() (*Service, *stubUserRepo) {
	jwt.Init("unit-test-secret-key-0123456789ab", 1)
	users := newStubUserRepo()
	repos := &repository.Repositories{User: users}
	return NewService(repos), users
}

func TestRegisterIssuesToken(t *testing.T) {
	svc, _ := newTestService()

	resp, err := svc.Register(request.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice", resp.User.Username)

	claims, err := jwt.ParseToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.Id, claims.UserId)
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Register(request.RegisterRequest{
		Username: "alice", Email: "a@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	_, err = svc.Register(request.RegisterRequest{
		Username: "alice", Email: "b@example.com", Password: "secret456",
	})
	require.Error(t, err)
	assert.Equal(t, errorx.CodeUserExist, errorx.GetCode(err))
}

func TestLoginRoundTrip(t *testing.T) {
	svc, users := newTestService()
	_, err := svc.Register(request.RegisterRequest{
		Username: "alice", Email: "a@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	resp, err := svc.Login(request.LoginRequest{Username: "alice", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.True(t, users.users[resp.User.Id].IsOnline)
}

// 用户不存在和密码错误返回同一错误码
func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Register(request.RegisterRequest{
		Username: "alice", Email: "a@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	_, err = svc.Login(request.LoginRequest{Username: "alice", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, errorx.CodeInvalidPassword, errorx.GetCode(err))

	_, err = svc.Login(request.LoginRequest{Username: "nobody", Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, errorx.CodeInvalidPassword, errorx.GetCode(err))
}

func TestMe(t *testing.T) {
	svc, _ := newTestService()
	reg, err := svc.Register(request.RegisterRequest{
		Username: "alice", Email: "a@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	me, err := svc.Me(reg.User.Id)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)

	_, err = svc.Me(9999)
	require.Error(t, err)
	assert.Equal(t, errorx.CodeUserNotExist, errorx.GetCode(err))
}
