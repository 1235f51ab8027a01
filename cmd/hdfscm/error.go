package main

import "errors"

var (
	// ErrTransferIncomplete occurs when at least one file of a push or pull
	// could not be transferred.
	ErrTransferIncomplete = errors.New("transfer incomplete")

	// ErrUnknownBackend occurs when the configured store backend is not
	// known.
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrNotADirectory occurs when the local side of a push is not a
	// directory.
	ErrNotADirectory = errors.New("not a directory")
)
