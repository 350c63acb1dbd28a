package model

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx/types"
)

type User struct {
	ID          int64  `db:"id"`
	FirebaseUID string `db:"firebase_uid"`
	DisplayName string `db:"display_name"`
	ContactURI  string `db:"contact_uri"`
}

type Tag struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// DataSetTag is a tag joined to the data set it is attached to
type DataSetTag struct {
	DataSetID int64  `db:"data_set_id"`
	ID        int64  `db:"id"`
	Name      string `db:"name"`
}

// Owner is the public face of a data set's user
type Owner struct {
	DisplayName string `db:"display_name"`
	ContactURI  string `db:"contact_uri"`
}

type PublicDataSet struct {
	ID       int64          `db:"id"`
	Title    string         `db:"title"`
	Path     string         `db:"path"`
	UploadAt time.Time      `db:"upload_at"`
	MetaData types.JSONText `db:"meta_data"`
	Owner
}

type AdminDataSet struct {
	ID       int64     `db:"id"`
	Title    string    `db:"title"`
	Path     string    `db:"path"`
	IsPublic bool      `db:"is_public"`
	UploadAt time.Time `db:"upload_at"`
	Owner
}

// ExportRow is one line of the admin workbook
type ExportRow struct {
	AdminDataSet
	Classes    sql.NullInt64 `db:"meta_data_classes"`
	Properties sql.NullInt64 `db:"meta_data_properties"`
}
