package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validContent = `{"meta_data":{"properties":3,"triples":30,"classes":2,"endpoint":"https://example.org/sparql","crawl_date":"2020-02-02"}}`

// multipartBody builds a form with one file per field name
func multipartBody(t *testing.T, files map[string][2]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, file := range files {
		fw, err := mw.CreateFormFile(field, file[0])
		require.NoError(t, err)
		_, err = fw.Write([]byte(file[1]))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func dataSetRoutes(h *DataSetHandler) func(r gin.IRoutes) {
	return func(r gin.IRoutes) {
		r.GET("/data_sets", h.ListDataSets)
		r.POST("/data_sets", h.CreateDataSet)
		r.GET("/data_sets/:id", h.GetDataSet)
		r.PATCH("/data_sets/:id", h.UpdateDataSet)
		r.DELETE("/data_sets/:id", h.DeleteDataSet)
		r.GET("/visualize/:path", h.Visualize)
	}
}

func TestDataSetHandler_Create(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		content     string
		wantStatus  int
		wantMessage string
		wantTitle   string
	}{
		{
			name:       "valid document",
			filename:   "my-species-dataset-with-a-very-long-name.json",
			content:    validContent,
			wantStatus: http.StatusCreated,
			wantTitle:  "my-species-dataset-with-a-very-l",
		},
		{
			name:        "missing meta_data",
			filename:    "a.json",
			content:     `{"classes":[]}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "meta_data does not exist",
		},
		{
			name:        "missing key",
			filename:    "a.json",
			content:     `{"meta_data":{"properties":3,"triples":30,"endpoint":"e","crawl_date":"d"}}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "classes does not exist",
		},
		{
			name:        "wrong type",
			filename:    "a.json",
			content:     `{"meta_data":{"properties":"3","triples":30,"classes":2,"endpoint":"e","crawl_date":"d"}}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "properties is invalid type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			user := store.addUser("uid-1", "alice")
			h := NewDataSetHandler(testDeps(store, newFakeIdentity()))

			body, ct := multipartBody(t, map[string][2]string{"file": {tt.filename, tt.content}})
			w := serve(t, dataSetRoutes(h), user, http.MethodPost, "/data_sets", body, ct)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantMessage != "" {
				assert.JSONEq(t, `{"message":"`+tt.wantMessage+`"}`, w.Body.String())
				return
			}

			var resp struct {
				ID       int64  `json:"id"`
				Title    string `json:"title"`
				Path     string `json:"path"`
				UploadAt string `json:"upload_at"`
				IsPublic bool   `json:"is_public"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantTitle, resp.Title)
			assert.Len(t, resp.Path, 32)
			assert.False(t, resp.IsPublic)
			assert.True(t, strings.HasSuffix(resp.UploadAt, "+09:00"), resp.UploadAt)

			stored, err := store.GetOwnedDataSet(t.Context(), user.ID, resp.ID)
			require.NoError(t, err)
			assert.JSONEq(t, tt.content, string(stored.Content))
		})
	}
}

func TestDataSetHandler_Create_NoFile(t *testing.T) {
	store := newMemStore()
	user := store.addUser("uid-1", "alice")
	h := NewDataSetHandler(testDeps(store, newFakeIdentity()))

	body, ct := multipartBody(t, map[string][2]string{"other": {"a.json", validContent}})
	w := serve(t, dataSetRoutes(h), user, http.MethodPost, "/data_sets", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDataSetHandler_List(t *testing.T) {
	store := newMemStore()
	user := store.addUser("uid-1", "alice")
	other := store.addUser("uid-2", "bob")
	ds := store.addDataSet(user.ID, "mine", true)
	store.addDataSet(other.ID, "theirs", true)
	h := NewDataSetHandler(testDeps(store, newFakeIdentity()))

	w := serve(t, dataSetRoutes(h), user, http.MethodGet, "/data_sets", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[{"id":`+strconv.FormatInt(ds.ID, 10)+`,"title":"mine","path":"mine-path","upload_at":"2024-03-01T09:00:00+09:00","is_public":true}]}`, w.Body.String())
}

func TestDataSetHandler_OwnerOnly(t *testing.T) {
	store := newMemStore()
	user := store.addUser("uid-1", "alice")
	other := store.addUser("uid-2", "bob")
	theirs := store.addDataSet(other.ID, "theirs", false)
	h := NewDataSetHandler(testDeps(store, newFakeIdentity()))

	target := "/data_sets/" + strconv.FormatInt(theirs.ID, 10)
	for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete} {
		w := serve(t, dataSetRoutes(h), user, method, target, strings.NewReader(`{}`), "application/json")
		assert.Equal(t, http.StatusNotFound, w.Code, method)
		assert.JSONEq(t, `{"message":"not found"}`, w.Body.String())
	}

	w := serve(t, dataSetRoutes(h), user, http.MethodGet, "/data_sets/abc", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, err := store.GetDataSet(t.Context(), theirs.ID)
	assert.NoError(t, err)
}

func TestDataSetHandler_Update(t *testing.T) {
	tests := []struct {
		name        string
		form        url.Values
		wantStatus  int
		wantTitle   string
		wantPublic  bool
		wantTags    []string
		wantMessage string
	}{
		{
			name:       "title is truncated",
			form:       url.Values{"title": {strings.Repeat("t", 70)}},
			wantStatus: http.StatusOK,
			wantTitle:  strings.Repeat("t", 64),
			wantTags:   []string{"old"},
		},
		{
			name:       "publish",
			form:       url.Values{"is_public": {"true"}},
			wantStatus: http.StatusOK,
			wantTitle:  "genes",
			wantPublic: true,
			wantTags:   []string{"old"},
		},
		{
			name:       "replace tags",
			form:       url.Values{"comma_separated_tag_name": {" bio, chem ,bio"}},
			wantStatus: http.StatusOK,
			wantTitle:  "genes",
			wantTags:   []string{"bio", "chem"},
		},
		{
			name:       "empty string clears tags",
			form:       url.Values{"comma_separated_tag_name": {""}},
			wantStatus: http.StatusOK,
			wantTitle:  "genes",
			wantTags:   []string{},
		},
		{
			name:        "only separators",
			form:        url.Values{"comma_separated_tag_name": {" , "}},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "no tags",
		},
		{
			name:       "tag too long",
			form:       url.Values{"comma_separated_tag_name": {strings.Repeat("x", 21)}},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			user := store.addUser("uid-1", "alice")
			ds := store.addDataSet(user.ID, "genes", false)
			require.NoError(t, store.UpdateDataSet(t.Context(), ds.ID, storageUpdate("genes", false, "old")))
			h := NewDataSetHandler(testDeps(store, newFakeIdentity()))

			w := serve(t, dataSetRoutes(h), user, http.MethodPatch, "/data_sets/"+strconv.FormatInt(ds.ID, 10),
				strings.NewReader(tt.form.Encode()), "application/x-www-form-urlencoded")

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus != http.StatusOK {
				if tt.wantMessage != "" {
					assert.JSONEq(t, `{"message":"`+tt.wantMessage+`"}`, w.Body.String())
				}
				return
			}

			var resp struct {
				ID       int64  `json:"id"`
				Title    string `json:"title"`
				IsPublic bool   `json:"is_public"`
				Tags     []struct {
					Name string `json:"name"`
				} `json:"tags"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, ds.ID, resp.ID)
			assert.Equal(t, tt.wantTitle, resp.Title)
			assert.Equal(t, tt.wantPublic, resp.IsPublic)

			names := []string{}
			for _, tag := range resp.Tags {
				names = append(names, tag.Name)
			}
			assert.ElementsMatch(t, tt.wantTags, names)
		})
	}
}

func TestDataSetHandler_GetAndDelete(t *testing.T) {
	store := newMemStore()
	user := store.addUser("uid-1", "alice")
	ds := store.addDataSet(user.ID, "genes", true)
	h := NewDataSetHandler(testDeps(store, newFakeIdentity()))
	target := "/data_sets/" + strconv.FormatInt(ds.ID, 10)

	w := serve(t, dataSetRoutes(h), user, http.MethodGet, target, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":`+strconv.FormatInt(ds.ID, 10)+`,"title":"genes","is_public":true,"tags":[]}`, w.Body.String())

	w = serve(t, dataSetRoutes(h), user, http.MethodDelete, target, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = serve(t, dataSetRoutes(h), user, http.MethodGet, target, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDataSetHandler_Visualize(t *testing.T) {
	store := newMemStore()
	user := store.addUser("uid-1", "alice")
	ds := store.addDataSet(user.ID, "genes", false)
	h := NewDataSetHandler(testDeps(store, newFakeIdentity()))

	w := serve(t, dataSetRoutes(h), nil, http.MethodGet, "/visualize/"+ds.Path, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":`+strconv.FormatInt(ds.ID, 10)+`,"title":"genes","content":{"meta_data":{"classes":1}}}`, w.Body.String())

	w = serve(t, dataSetRoutes(h), nil, http.MethodGet, "/visualize/unknown", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"not found"}`, w.Body.String())
}

func TestDataSetHandler_StoreError(t *testing.T) {
	store := newMemStore()
	user := store.addUser("uid-1", "alice")
	store.err = errStoreDown
	h := NewDataSetHandler(testDeps(store, newFakeIdentity()))

	w := serve(t, dataSetRoutes(h), user, http.MethodGet, "/data_sets", nil, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = serve(t, dataSetRoutes(h), user, http.MethodGet, "/data_sets/1", nil, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
