package app

import (
	"strings"

	"paygate/pkg/domain"
)

// UserPatch carries the updatable profile fields; nil means "leave as is".
type UserPatch struct {
	Email       *string `json:"email"`
	DisplayName *string `json:"displayName"`
	PhotoURL    *string `json:"photoURL"`
}

// UpsertUser records a user on first sign-in. When the uid is already known
// the stored record is returned unchanged, so repeated sign-ins never create
// duplicates. The bool reports whether a new record was created.
func (a *App) UpsertUser(u domain.User) (domain.User, bool, error) {
	if err := a.ready(); err != nil {
		return domain.User{}, false, err
	}
	u.UID = strings.TrimSpace(u.UID)
	if u.UID == "" {
		return domain.User{}, false, validation("uid is required")
	}
	existing, found, err := a.store.GetUser(u.UID)
	if err != nil {
		return domain.User{}, false, wrap("lookup user", err)
	}
	if found {
		return existing, false, nil
	}
	now := a.now()
	u.CreatedAt = now
	u.UpdatedAt = now
	if err := a.store.SaveUser(u); err != nil {
		return domain.User{}, false, wrap("save user", err)
	}
	return u, true, nil
}

// GetUser returns a user by provider uid.
func (a *App) GetUser(uid string) (domain.User, error) {
	if err := a.ready(); err != nil {
		return domain.User{}, err
	}
	u, found, err := a.store.GetUser(uid)
	if err != nil {
		return domain.User{}, wrap("lookup user", err)
	}
	if !found {
		return domain.User{}, notFound("user")
	}
	return u, nil
}

// UpdateUser applies a partial profile update and returns the stored record.
func (a *App) UpdateUser(uid string, patch UserPatch) (domain.User, error) {
	if err := a.ready(); err != nil {
		return domain.User{}, err
	}
	u, found, err := a.store.GetUser(uid)
	if err != nil {
		return domain.User{}, wrap("lookup user", err)
	}
	if !found {
		return domain.User{}, notFound("user")
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.DisplayName != nil {
		u.DisplayName = *patch.DisplayName
	}
	if patch.PhotoURL != nil {
		u.PhotoURL = *patch.PhotoURL
	}
	u.UpdatedAt = a.now()
	if err := a.store.SaveUser(u); err != nil {
		return domain.User{}, wrap("save user", err)
	}
	return u, nil
}

// DeleteUser removes an account. Only explicit account deletion reaches
// this; nothing in the normal flow deletes users.
func (a *App) DeleteUser(uid string) error {
	if err := a.ready(); err != nil {
		return err
	}
	found, err := a.store.DeleteUser(uid)
	if err != nil {
		return wrap("delete user", err)
	}
	if !found {
		return notFound("user")
	}
	return nil
}
