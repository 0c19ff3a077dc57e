package service

import (
	"errors"
	"fmt"

	"github.com/okian/ladder/internal/adapters/repository"
)

// Sentinel error kinds for this package.
var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrNotGuarded        = errors.New("collection is not saved as a whole document")
	ErrMatchExists       = errors.New("match already exists")

	// Not-found kinds also match repository.ErrNotFound.
	ErrMatchNotFound = fmt.Errorf("match %w", repository.ErrNotFound)
	ErrTeamNotFound  = fmt.Errorf("team %w", repository.ErrNotFound)
)
