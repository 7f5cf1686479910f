package models

import "errors"

var (
	// ErrNotRegistered is returned when an operation requires a technician that does not exist.
	ErrNotRegistered = errors.New("technician is not registered")
	// ErrNotFound is returned when an occurrence id is absent from the store.
	ErrNotFound = errors.New("occurrence not found")
	// ErrIllegalTransition is returned when a status change leaves a terminal state or repeats the current one.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrUnauthorized is returned when a privileged operation is requested by an unprivileged actor.
	ErrUnauthorized = errors.New("actor is not privileged")
	// ErrProtectedIdentity is returned on any attempt to remove, reset or demote the master identity.
	ErrProtectedIdentity = errors.New("identity is protected")
	// ErrDuplicateLogin is returned when a login code is already taken by another technician.
	ErrDuplicateLogin = errors.New("login is already in use")
	// ErrInvalidCategory is returned when an occurrence is opened with a category outside the closed set.
	ErrInvalidCategory = errors.New("unknown occurrence category")
	// ErrStoreExhausted is returned when occurrence id generation keeps colliding.
	ErrStoreExhausted = errors.New("could not allocate a unique occurrence id")

	// ErrTechnicianExists is returned by stores when the external id is already registered.
	ErrTechnicianExists = errors.New("technician already exists")
	// ErrOccurrenceIDExists is returned by stores when the occurrence id is already taken.
	ErrOccurrenceIDExists = errors.New("occurrence id already exists")
	// ErrStatusConflict is returned by stores when the stored status differs from the expected one.
	ErrStatusConflict = errors.New("occurrence status changed concurrently")
)
