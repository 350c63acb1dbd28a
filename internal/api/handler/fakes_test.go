package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/dataset-hub/internal/api/domain"
	"github.com/cuongbtq/dataset-hub/internal/api/model"
	"github.com/cuongbtq/dataset-hub/internal/api/storage"
	"github.com/cuongbtq/dataset-hub/internal/dataset"
	"github.com/gin-gonic/gin"
)

var (
	errStoreDown = errors.New("store unavailable")
	jst          = time.FixedZone("JST", 9*60*60)
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memStore is an in-memory Store. Catalog listings are canned.
type memStore struct {
	mu sync.Mutex

	users    map[int64]*model.User
	roles    map[int64][]int
	dataSets map[int64]*dataset.DataSet
	tags     map[int64][]model.Tag
	tagIDs   map[string]int64
	nextID   int64

	publicCount int
	publicRows  []model.PublicDataSet
	lastFilter  storage.PublicFilter

	adminCount int
	adminRows  []model.AdminDataSet
	lastPage   domain.Page

	exportRows []model.ExportRow

	err error
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[int64]*model.User{},
		roles:    map[int64][]int{},
		dataSets: map[int64]*dataset.DataSet{},
		tags:     map[int64][]model.Tag{},
		tagIDs:   map[string]int64{},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) addUser(uid, name string, roles ...int) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &model.User{ID: s.id(), FirebaseUID: uid, DisplayName: name}
	s.users[u.ID] = u
	s.roles[u.ID] = roles
	return u
}

func (s *memStore) addDataSet(owner int64, title string, public bool) *dataset.DataSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds := &dataset.DataSet{
		ID:       s.id(),
		UserID:   owner,
		Title:    title,
		Path:     title + "-path",
		Content:  []byte(`{"meta_data":{"classes":1}}`),
		UploadAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		IsPublic: public,
	}
	s.dataSets[ds.ID] = ds
	return ds
}

func (s *memStore) GetUserByFirebaseUID(ctx context.Context, uid string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, u := range s.users {
		if u.FirebaseUID == uid {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *memStore) CreateUser(ctx context.Context, uid, displayName string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, u := range s.users {
		if u.FirebaseUID == uid {
			return nil, domain.ErrAlreadyExists
		}
	}
	u := &model.User{ID: s.id(), FirebaseUID: uid, DisplayName: displayName}
	s.users[u.ID] = u
	copied := *u
	return &copied, nil
}

func (s *memStore) UpdateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *memStore) DeleteUser(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	delete(s.users, id)
	for dsID, ds := range s.dataSets {
		if ds.UserID == id {
			delete(s.dataSets, dsID)
		}
	}
	return nil
}

func (s *memStore) GetUserRoles(ctx context.Context, userID int64) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]int{}, s.roles[userID]...), nil
}

func (s *memStore) find(match func(*dataset.DataSet) bool) (*dataset.DataSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, ds := range s.dataSets {
		if match(ds) {
			copied := *ds
			return &copied, nil
		}
	}
	return nil, dataset.ErrNotFound
}

func (s *memStore) GetDataSet(ctx context.Context, id int64) (*dataset.DataSet, error) {
	return s.find(func(ds *dataset.DataSet) bool { return ds.ID == id })
}

func (s *memStore) GetOwnedDataSet(ctx context.Context, userID, id int64) (*dataset.DataSet, error) {
	return s.find(func(ds *dataset.DataSet) bool { return ds.ID == id && ds.UserID == userID })
}

func (s *memStore) GetDataSetByPath(ctx context.Context, path string) (*dataset.DataSet, error) {
	return s.find(func(ds *dataset.DataSet) bool { return ds.Path == path })
}

func (s *memStore) ListDataSetsByUser(ctx context.Context, userID int64) ([]dataset.DataSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := []dataset.DataSet{}
	for _, ds := range s.dataSets {
		if ds.UserID == userID {
			out = append(out, *ds)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) InsertDataSet(ctx context.Context, ds *dataset.DataSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	ds.ID = s.id()
	copied := *ds
	s.dataSets[ds.ID] = &copied
	return nil
}

func (s *memStore) UpdateDataSet(ctx context.Context, id int64, update storage.DataSetUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	ds, ok := s.dataSets[id]
	if !ok {
		return dataset.ErrNotFound
	}
	ds.Title = update.Title
	ds.IsPublic = update.IsPublic
	if update.TagNames != nil {
		tags := []model.Tag{}
		for _, name := range update.TagNames {
			tagID, ok := s.tagIDs[name]
			if !ok {
				tagID = s.id()
				s.tagIDs[name] = tagID
			}
			tags = append(tags, model.Tag{ID: tagID, Name: name})
		}
		sort.Slice(tags, func(i, j int) bool { return tags[i].ID < tags[j].ID })
		s.tags[id] = tags
	}
	return nil
}

func (s *memStore) DeleteDataSet(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.dataSets[id]; !ok {
		return dataset.ErrNotFound
	}
	delete(s.dataSets, id)
	delete(s.tags, id)
	return nil
}

func (s *memStore) ListTags(ctx context.Context, dataSetID int64) ([]model.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]model.Tag{}, s.tags[dataSetID]...), nil
}

func (s *memStore) ListTagsByDataSet(ctx context.Context, ids []int64) (map[int64][]model.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := map[int64][]model.Tag{}
	for _, id := range ids {
		if tags := s.tags[id]; len(tags) > 0 {
			out[id] = tags
		}
	}
	return out, nil
}

func (s *memStore) CountPublicDataSets(ctx context.Context, search string) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.publicCount, nil
}

func (s *memStore) ListPublicDataSets(ctx context.Context, filter storage.PublicFilter) ([]model.PublicDataSet, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.lastFilter = filter
	return s.publicRows, nil
}

func (s *memStore) CountDataSets(ctx context.Context) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.adminCount, nil
}

func (s *memStore) ListAdminDataSets(ctx context.Context, page domain.Page) ([]model.AdminDataSet, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.lastPage = page
	return s.adminRows, nil
}

func (s *memStore) ListExportRows(ctx context.Context) ([]model.ExportRow, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.exportRows, nil
}

// fakeIdentity accepts tokens of the form "token-<uid>"
type fakeIdentity struct {
	known map[string]bool
}

func newFakeIdentity(uids ...string) *fakeIdentity {
	known := map[string]bool{}
	for _, uid := range uids {
		known[uid] = true
	}
	return &fakeIdentity{known: known}
}

func (f *fakeIdentity) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	const prefix = "token-"
	if len(idToken) <= len(prefix) || idToken[:len(prefix)] != prefix {
		return "", errors.New("failed to verify id token: malformed token")
	}
	return idToken[len(prefix):], nil
}

func (f *fakeIdentity) LookupUser(ctx context.Context, uid string) error {
	if !f.known[uid] {
		return errors.New("no user exists with the uid: " + uid)
	}
	return nil
}

func (f *fakeIdentity) CustomToken(ctx context.Context, uid string) (string, error) {
	return "custom-" + uid, nil
}

func testDeps(store *memStore, identity *fakeIdentity) *Dependencies {
	return &Dependencies{
		Logger:   slog.New(slog.DiscardHandler),
		Store:    store,
		Identity: identity,
		Location: jst,
	}
}

// serve runs one request through a router where user (if any) is already authenticated
func serve(t *testing.T, register func(r gin.IRoutes), user *model.User, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	r := gin.New()
	group := r.Group("", func(c *gin.Context) {
		if user != nil {
			SetCurrentUser(c, user)
		}
		c.Next()
	})
	register(group)

	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func storageUpdate(title string, public bool, tags ...string) storage.DataSetUpdate {
	return storage.DataSetUpdate{Title: title, IsPublic: public, TagNames: tags}
}
