package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogforge/apiserver/types"
)

func validRegistration() map[string]any {
	return map[string]any{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "correct horse",
		"profile": map[string]any{
			"name":      "Alice",
			"last_name": "Smith",
			"age":       30,
		},
	}
}

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/users", "", validRegistration())

	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[types.User](t, rec)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "alice", created.Username)
	require.NotNil(t, created.Profile)
	assert.Equal(t, "Alice", created.Profile.Name)
	assert.NotContains(t, rec.Body.String(), "password")

	stored, err := env.userRepo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.NotEqual(t, "correct horse", stored.PasswordHash)
}

func TestCreateUserTakenIdentity(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alice", "alice@example.com", "correct horse")

	t.Run("taken username", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/users", "", validRegistration())
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("taken email", func(t *testing.T) {
		body := validRegistration()
		body["username"] = "alice2"
		rec := env.do(t, http.MethodPost, "/users", "", body)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestCreateUserValidation(t *testing.T) {
	env := newTestEnv(t)

	mutate := func(change func(body map[string]any)) map[string]any {
		body := validRegistration()
		change(body)
		return body
	}

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing username", mutate(func(b map[string]any) { b["username"] = "" })},
		{"bad email", mutate(func(b map[string]any) { b["email"] = "not-an-email" })},
		{"short password", mutate(func(b map[string]any) { b["password"] = "short" })},
		{"missing profile", mutate(func(b map[string]any) { delete(b, "profile") })},
		{"underage", mutate(func(b map[string]any) {
			b["profile"] = map[string]any{"name": "A", "last_name": "B", "age": 15}
		})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/users", "", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetUserAndProfile(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "alice", "alice@example.com", "correct horse")

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/users/%d", user.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	fetched := decodeBody[types.User](t, rec)
	assert.Equal(t, "alice", fetched.Username)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/users/%d/profile", user.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decodeBody[types.Profile](t, rec)
	assert.Equal(t, user.ID, profile.UserID)
}

func TestGetUserNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/users/99", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateUser(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "alice", "alice@example.com", "correct horse")
	token := env.tokenFor(t, user)

	rec := env.do(t, http.MethodPut, fmt.Sprintf("/users/%d", user.ID), token, map[string]any{
		"email":   "alice@new.example.com",
		"profile": map[string]any{"last_name": "Jones"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody[types.User](t, rec)
	assert.Equal(t, "alice@new.example.com", updated.Email)
	assert.Equal(t, "alice", updated.Username)
	require.NotNil(t, updated.Profile)
	assert.Equal(t, "Jones", updated.Profile.LastName)
	assert.Equal(t, "Test", updated.Profile.Name)
}

func TestUpdateUserPasswordChange(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "alice", "alice@example.com", "correct horse")
	token := env.tokenFor(t, user)

	rec := env.do(t, http.MethodPut, fmt.Sprintf("/users/%d", user.ID), token, map[string]any{
		"password": "battery staple",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	login := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "alice",
		"password": "battery staple",
	})
	assert.Equal(t, http.StatusOK, login.Code)

	oldLogin := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "alice",
		"password": "correct horse",
	})
	assert.Equal(t, http.StatusUnauthorized, oldLogin.Code)
}

func TestUpdateUserTakenUsername(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alice", "alice@example.com", "correct horse")
	bob := env.seedUser(t, "bob", "bob@example.com", "correct horse")

	rec := env.do(t, http.MethodPut, fmt.Sprintf("/users/%d", bob.ID), env.tokenFor(t, bob), map[string]any{
		"username": "alice",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateOtherUserForbidden(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice", "alice@example.com", "correct horse")
	bob := env.seedUser(t, "bob", "bob@example.com", "correct horse")

	rec := env.do(t, http.MethodPut, fmt.Sprintf("/users/%d", alice.ID), env.tokenFor(t, bob), map[string]any{
		"email": "stolen@example.com",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "alice", "alice@example.com", "correct horse")
	token := env.tokenFor(t, user)

	rec := env.do(t, http.MethodDelete, fmt.Sprintf("/users/%d", user.ID), token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/users/%d", user.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteOtherUserForbidden(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice", "alice@example.com", "correct horse")
	bob := env.seedUser(t, "bob", "bob@example.com", "correct horse")

	rec := env.do(t, http.MethodDelete, fmt.Sprintf("/users/%d", alice.ID), env.tokenFor(t, bob), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
