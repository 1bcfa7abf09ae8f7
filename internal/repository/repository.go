package repository

import (
	"context"

	"github.com/sakif/common-ground/internal/model"
)

// Snapshot is the social state as stored: the four collections, each in
// the order its records were first saved.
type Snapshot struct {
	Users       []model.User
	Connections []model.Connection
	Messages    []model.Message
	Events      []model.Event
}

// StateRepository persists the social state record by record.
// Every Save is an upsert keyed on the record ID.
type StateRepository interface {
	LoadSnapshot(ctx context.Context) (*Snapshot, error)
	SaveUser(ctx context.Context, user model.User) error
	SaveConnection(ctx context.Context, conn model.Connection) error
	SaveMessages(ctx context.Context, messages []model.Message) error
	SaveEvent(ctx context.Context, event model.Event) error
}

type AccountRepository interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	UpsertGitHubAccount(ctx context.Context, account *model.Account) error
}
