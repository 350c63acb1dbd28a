package dto

import (
	"encoding/json"
	"time"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

type SignUpRequest struct {
	FirebaseUID string `json:"firebase_uid" form:"firebase_uid" binding:"required"`
	DisplayName string `json:"display_name" form:"display_name" binding:"required"`
}

type AuthRequest struct {
	Token string `json:"token" form:"token" binding:"required"`
}

type CustomTokenResponse struct {
	CustomToken string `json:"custom_token"`
}

type AuthResponse struct {
	CustomToken string `json:"custom_token"`
	MeResponse
}

type MeResponse struct {
	DisplayName string `json:"display_name"`
	ContactURI  string `json:"contact_uri"`
	Roles       []int  `json:"roles"`
}

type UpdateMeRequest struct {
	DisplayName *string `json:"display_name" form:"display_name"`
	ContactURI  *string `json:"contact_uri" form:"contact_uri"`
}

type TaskResponse struct {
	TaskID string `json:"task_id"`
}

type DataSetSummary struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Path     string `json:"path"`
	UploadAt string `json:"upload_at"`
	IsPublic bool   `json:"is_public"`
}

type DataSetListResponse struct {
	Data []DataSetSummary `json:"data"`
}

type TagDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type DataSetDetail struct {
	ID       int64    `json:"id"`
	Title    string   `json:"title"`
	IsPublic bool     `json:"is_public"`
	Tags     []TagDTO `json:"tags"`
}

type UpdateDataSetRequest struct {
	Title                 *string `json:"title" form:"title"`
	IsPublic              *bool   `json:"is_public" form:"is_public"`
	CommaSeparatedTagName *string `json:"comma_separated_tag_name" form:"comma_separated_tag_name"`
}

type VisualizedDataSet struct {
	ID      int64           `json:"id"`
	Title   string          `json:"title"`
	Content json.RawMessage `json:"content"`
}

type PublicDataSetsRequest struct {
	Size   *int   `form:"size"`
	Page   int    `form:"page"`
	Sort   int    `form:"sort"`
	Search string `form:"search"`
}

type OwnerDTO struct {
	DisplayName string `json:"display_name"`
	ContactURI  string `json:"contact_uri"`
}

type PublicDataSet struct {
	ID       int64           `json:"id"`
	Title    string          `json:"title"`
	Path     string          `json:"path"`
	UploadAt string          `json:"upload_at"`
	MetaData json.RawMessage `json:"meta_data"`
	User     OwnerDTO        `json:"user"`
	Tags     []TagDTO        `json:"tags"`
}

type AdminDataSet struct {
	ID       int64    `json:"id"`
	Title    string   `json:"title"`
	Path     string   `json:"path"`
	IsPublic bool     `json:"is_public"`
	UploadAt string   `json:"upload_at"`
	User     OwnerDTO `json:"user"`
}

// PageResponse is a page of T with links to its neighbours
type PageResponse[T any] struct {
	Count    int     `json:"count"`
	Previous *string `json:"previous"`
	Next     *string `json:"next"`
	Data     []T     `json:"data"`
}

type ProxyRequest struct {
	Endpoint string `form:"endpoint" binding:"required"`
	Query    string `form:"query" binding:"required"`
}

// FormatTime renders t as RFC3339 in loc
func FormatTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.RFC3339)
}
