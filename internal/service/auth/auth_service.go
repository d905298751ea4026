// Package auth 实现注册、登录和当前用户查询
package auth

import (
	"time"

	"securewave_server/internal/dao/mysql/repository"
	"securewave_server/internal/dto/request"
	"securewave_server/internal/dto/respond"
	"securewave_server/internal/model"
	"securewave_server/pkg/errorx"
	"securewave_server/pkg/util/jwt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	repos *repository.Repositories
}

func NewService(repos *repository.Repositories) *Service {
	return &Service{repos: repos}
}

// Register 注册新用户，成功后直接签发 Token
func (s *Service) Register(req request.RegisterRequest) (*respond.AuthRespond, error) {
	if _, err := s.repos.User.FindByUsername(req.Username); err == nil {
		return nil, errorx.New(errorx.CodeUserExist, "username already taken")
	} else if !errorx.IsNotFound(err) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeServerBusy, "failed to hash password")
	}

	user := &model.UserInfo{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.repos.User.Create(user); err != nil {
		return nil, err
	}
	zap.L().Info("新用户注册",
		zap.Int64("user_id", user.Id), zap.String("username", user.Username))

	return s.issueToken(user)
}

// Login 用户名密码登录
// 用户不存在与密码错误返回同一错误，避免暴露用户名是否注册
func (s *Service) Login(req request.LoginRequest) (*respond.AuthRespond, error) {
	user, err := s.repos.User.FindByUsername(req.Username)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeInvalidPassword, "invalid username or password")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(
		[]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errorx.New(errorx.CodeInvalidPassword, "invalid username or password")
	}

	if err := s.repos.User.SetOnline(user.Id, true); err != nil {
		zap.L().Warn("登录后更新在线状态失败",
			zap.Int64("user_id", user.Id), zap.Error(err))
	}

	return s.issueToken(user)
}

// Me 查询当前登录用户资料
func (s *Service) Me(userId int64) (*respond.UserRespond, error) {
	user, err := s.repos.User.FindById(userId)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeUserNotExist, "user not found")
		}
		return nil, err
	}
	resp := toUserRespond(user)
	return &resp, nil
}

func (s *Service) issueToken(user *model.UserInfo) (*respond.AuthRespond, error) {
	token, err := jwt.GenerateToken(user.Id, user.Username)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeServerBusy, "failed to generate token")
	}
	return &respond.AuthRespond{
		Token: token,
		User:  toUserRespond(user),
	}, nil
}

func toUserRespond(user *model.UserInfo) respond.UserRespond {
	resp := respond.UserRespond{
		Id:        user.Id,
		Username:  user.Username,
		Email:     user.Email,
		AvatarUrl: user.AvatarUrl,
		IsOnline:  user.IsOnline,
	}
	if user.LastSeen.Valid {
		t := user.LastSeen.Time
		resp.LastSeen = &t
	}
	return resp
}
