package services_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/yigit/engnotes/internal/app/models"
	"github.com/yigit/engnotes/internal/app/repositories"
	"github.com/yigit/engnotes/internal/app/services"
	"github.com/yigit/engnotes/internal/pkg/filestorage"
	"github.com/yigit/engnotes/internal/pkg/metrics"
	"github.com/yigit/engnotes/internal/testutil"
)

// eventLog is shared by the recording store and blob store so their calls
// can be ordered against each other.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) index(e string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, got := range l.events {
		if got == e {
			return i
		}
	}
	return -1
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// recordingStore logs successful record deletes and can inject failures.
type recordingStore struct {
	services.CatalogStore
	log          *eventLog
	failDelete   map[string]error
	failAddChild error
	// runs before child links of a kind are listed
	beforeListLinks func(parentKind models.Kind)
}

func (s *recordingStore) Delete(ctx context.Context, kind models.Kind, id string) error {
	if err := s.failDelete[id]; err != nil {
		return err
	}
	if err := s.CatalogStore.Delete(ctx, kind, id); err != nil {
		return err
	}
	s.log.add("record:" + id)
	return nil
}

func (s *recordingStore) AddChild(ctx context.Context, parentKind models.Kind, parentID, childID string) error {
	if s.failAddChild != nil {
		return s.failAddChild
	}
	return s.CatalogStore.AddChild(ctx, parentKind, parentID, childID)
}

func (s *recordingStore) ListChildLinks(ctx context.Context, parentKind models.Kind) ([]models.ChildLink, error) {
	if s.beforeListLinks != nil {
		s.beforeListLinks(parentKind)
	}
	return s.CatalogStore.ListChildLinks(ctx, parentKind)
}

// recordingBlobs logs successful blob deletes and can inject failures.
type recordingBlobs struct {
	filestorage.BlobStore
	log        *eventLog
	failDelete map[string]error
}

func (b *recordingBlobs) DeleteFile(blobPath string) error {
	if err := b.failDelete[blobPath]; err != nil {
		return err
	}
	if err := b.BlobStore.DeleteFile(blobPath); err != nil {
		return err
	}
	b.log.add("blob:" + blobPath)
	return nil
}

// mapCache is an in-memory cache.Cache that round-trips through JSON.
type mapCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	hits        int
	invalidated int
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]byte{}}
}

func (c *mapCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(data, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	return nil
}

func (c *mapCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string][]byte{}
	c.invalidated++
	return nil
}

type env struct {
	repo      *repositories.CatalogRepository
	store     *recordingStore
	disk      *filestorage.LocalStorage
	blobs     *recordingBlobs
	log       *eventLog
	cache     *mapCache
	cascade   *services.CascadeService
	catalog   *services.CatalogService
	reconcile *services.ReconcileService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	repo := repositories.NewCatalogRepository(testutil.NewSQLiteDB(t))
	disk, err := filestorage.NewLocalStorage(filepath.Join(t.TempDir(), "pdfs"), "/uploads/pdfs")
	require.NoError(t, err)

	log := &eventLog{}
	store := &recordingStore{CatalogStore: repo, log: log, failDelete: map[string]error{}}
	blobs := &recordingBlobs{BlobStore: disk, log: log, failDelete: map[string]error{}}
	readCache := newMapCache()

	cascade := services.NewCascadeService(store, blobs, metrics.New(), zerolog.Nop())
	return &env{
		repo:      repo,
		store:     store,
		disk:      disk,
		blobs:     blobs,
		log:       log,
		cache:     readCache,
		cascade:   cascade,
		catalog:   services.NewCatalogService(store, blobs, filestorage.NewPDFValidator(0), cascade, readCache, zerolog.Nop()),
		reconcile: services.NewReconcileService(store, blobs, cascade, readCache, zerolog.Nop()),
	}
}

// tree is the fixture built by seedTree:
//
//	degree
//	├── s1
//	│   ├── subA: n1, n2
//	│   └── subB: (no notes)
//	└── s2
//	    └── subC: n3
type tree struct {
	degree           *models.Degree
	s1, s2           *models.Semester
	subA, subB, subC *models.Subject
	n1, n2, n3       *models.Note
}

func (e *env) seedTree(t *testing.T) *tree {
	t.Helper()
	ctx := context.Background()
	tr := &tree{}

	tr.degree = &models.Degree{Name: models.DegreeCivil, ShortName: "CE"}
	require.NoError(t, e.catalog.CreateDegree(ctx, tr.degree))

	tr.s1 = &models.Semester{Number: 1, Name: "Fall", DegreeID: tr.degree.ID}
	require.NoError(t, e.catalog.CreateSemester(ctx, tr.s1))
	tr.s2 = &models.Semester{Number: 2, Name: "Spring", DegreeID: tr.degree.ID}
	require.NoError(t, e.catalog.CreateSemester(ctx, tr.s2))

	tr.subA = &models.Subject{Name: "Statics", Code: "CE101", SemesterID: tr.s1.ID}
	require.NoError(t, e.catalog.CreateSubject(ctx, tr.subA))
	tr.subB = &models.Subject{Name: "Drawing", SemesterID: tr.s1.ID}
	require.NoError(t, e.catalog.CreateSubject(ctx, tr.subB))
	tr.subC = &models.Subject{Name: "Dynamics", SemesterID: tr.s2.ID}
	require.NoError(t, e.catalog.CreateSubject(ctx, tr.subC))

	tr.n1 = &models.Note{Title: "Week 1", Author: "Hibbeler", SubjectID: tr.subA.ID}
	require.NoError(t, e.catalog.CreateNote(ctx, tr.n1, testutil.PDF(t)))
	tr.n2 = &models.Note{Title: "Week 2", Author: "Hibbeler", SubjectID: tr.subA.ID}
	require.NoError(t, e.catalog.CreateNote(ctx, tr.n2, testutil.PDF(t)))
	tr.n3 = &models.Note{Title: "Kinematics", Author: "Meriam", SubjectID: tr.subC.ID}
	require.NoError(t, e.catalog.CreateNote(ctx, tr.n3, testutil.PDF(t)))

	return tr
}

// ageBlob backdates a stored file past the orphan grace period.
func (e *env) ageBlob(t *testing.T, blobPath string) {
	t.Helper()
	old := time.Now().Add(-2 * services.DefaultBlobGracePeriod)
	require.NoError(t, os.Chtimes(e.disk.GetFullPath(blobPath), old, old))
}

func (e *env) blobCount(t *testing.T) int {
	t.Helper()
	paths, err := e.disk.List()
	require.NoError(t, err)
	return len(paths)
}
