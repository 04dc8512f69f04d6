package handler

import (
	"errors"
	"net/http"
	"strings"

	"minicrm/internal/auth"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const minPasswordLen = 8

type AuthHandler struct {
	DB  *gorm.DB
	JWT *auth.JWT
	Log logrus.FieldLogger
}

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResp struct {
	Token string `json:"token"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || len(req.Password) < minPasswordLen {
		writeDetail(w, http.StatusBadRequest, "email and a password of at least 8 characters are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	u := auth.User{Email: req.Email, PasswordHash: hash}
	if err := h.DB.WithContext(r.Context()).Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			writeDetail(w, http.StatusConflict, "email already used")
			return
		}
		writeError(w, r, h.Log, err)
		return
	}

	h.writeToken(w, r, http.StatusCreated, u.ID)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeDetail(w, http.StatusBadRequest, "email and password are required")
		return
	}

	var u auth.User
	if err := h.DB.WithContext(r.Context()).Where("email = ?", req.Email).Take(&u).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, r, h.Log, err)
			return
		}
		writeDetail(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !auth.ComparePassword(u.PasswordHash, req.Password) {
		writeDetail(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.writeToken(w, r, http.StatusOK, u.ID)
}

func (h *AuthHandler) writeToken(w http.ResponseWriter, r *http.Request, status int, userID uint64) {
	token, err := h.JWT.Sign(userID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, status, tokenResp{Token: token})
}
