package conntable

import "errors"

var (
	// ErrNoFreeSlot indicates every connection slot is in use.
	ErrNoFreeSlot = errors.New("conntable: no free connection slot")

	// ErrNoSuchConn indicates the referenced connection is not in the table.
	ErrNoSuchConn = errors.New("conntable: no such connection")

	// ErrDuplicateHandle indicates a connection with the same transport handle already exists.
	ErrDuplicateHandle = errors.New("conntable: duplicate connection handle")

	// ErrRoleConflict indicates an attempt to change an already established role.
	ErrRoleConflict = errors.New("conntable: role already established")

	// ErrInvalidRole indicates a role value that cannot be assigned.
	ErrInvalidRole = errors.New("conntable: invalid role")

	// ErrInvalidAddr indicates a malformed peer address string.
	ErrInvalidAddr = errors.New("conntable: invalid peer address")
)
