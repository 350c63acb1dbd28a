package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/dataset-hub/internal/api/domain"
	"github.com/cuongbtq/dataset-hub/internal/api/model"
	"github.com/cuongbtq/dataset-hub/internal/api/storage"
	"github.com/cuongbtq/dataset-hub/internal/dataset"
	"github.com/cuongbtq/dataset-hub/internal/task"
)

// UserStore persists local user records
type UserStore interface {
	GetUserByFirebaseUID(ctx context.Context, uid string) (*model.User, error)
	CreateUser(ctx context.Context, uid, displayName string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id int64) error
	GetUserRoles(ctx context.Context, userID int64) ([]int, error)
}

// DataSetStore persists data sets and their tags
type DataSetStore interface {
	GetDataSet(ctx context.Context, id int64) (*dataset.DataSet, error)
	GetOwnedDataSet(ctx context.Context, userID, id int64) (*dataset.DataSet, error)
	GetDataSetByPath(ctx context.Context, path string) (*dataset.DataSet, error)
	ListDataSetsByUser(ctx context.Context, userID int64) ([]dataset.DataSet, error)
	InsertDataSet(ctx context.Context, ds *dataset.DataSet) error
	UpdateDataSet(ctx context.Context, id int64, update storage.DataSetUpdate) error
	DeleteDataSet(ctx context.Context, id int64) error
	ListTags(ctx context.Context, dataSetID int64) ([]model.Tag, error)
	ListTagsByDataSet(ctx context.Context, dataSetIDs []int64) (map[int64][]model.Tag, error)
}

// CatalogStore serves the public and admin listings
type CatalogStore interface {
	CountPublicDataSets(ctx context.Context, search string) (int, error)
	ListPublicDataSets(ctx context.Context, filter storage.PublicFilter) ([]model.PublicDataSet, error)
	CountDataSets(ctx context.Context) (int, error)
	ListAdminDataSets(ctx context.Context, page domain.Page) ([]model.AdminDataSet, error)
	ListExportRows(ctx context.Context) ([]model.ExportRow, error)
}

// Store is everything the handlers read and write; *storage.Storage implements it
type Store interface {
	UserStore
	DataSetStore
	CatalogStore
}

// Identity is the external identity provider; *firebase.Client implements it
type Identity interface {
	VerifyIDToken(ctx context.Context, idToken string) (string, error)
	LookupUser(ctx context.Context, uid string) error
	CustomToken(ctx context.Context, uid string) (string, error)
}

// TaskLauncher starts generation jobs
type TaskLauncher interface {
	Launch(ctx context.Context, owner int64, sbm, ontology *task.Upload) (string, error)
}

// TaskPoller reports generation job status
type TaskPoller interface {
	Poll(ctx context.Context, taskID string, owner int64) (*task.Outcome, error)
}

// HealthChecker is implemented by the shared postgresql and redis clients
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger         *slog.Logger
	Store          Store
	Identity       Identity
	Launcher       TaskLauncher
	Poller         TaskPoller
	HTTPClient     *http.Client
	Location       *time.Location
	MaxUploadBytes int64
	HealthChecks   map[string]HealthChecker
}

func (d *Dependencies) location() *time.Location {
	if d.Location == nil {
		return time.UTC
	}
	return d.Location
}
