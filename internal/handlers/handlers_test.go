package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/blogforge/apiserver/internal/auth"
	"github.com/blogforge/apiserver/internal/handlers"
	"github.com/blogforge/apiserver/internal/services"
	"github.com/blogforge/apiserver/internal/store"
	"github.com/blogforge/apiserver/types"
)

// fakeUserRepo is an in-memory stand-in for the user repository. It also
// serves as the credential store behind the validator.
type fakeUserRepo struct {
	users  map[int]types.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int]types.User{}, nextID: 1}
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) FindByUsername(_ context.Context, username string) (types.User, error) {
	for _, user := range f.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (types.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) List(_ context.Context) ([]types.User, error) {
	ids := make([]int, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	users := make([]types.User, 0, len(ids))
	for _, id := range ids {
		users = append(users, f.users[id])
	}
	return users, nil
}

func (f *fakeUserRepo) identityTaken(user types.User) bool {
	for id, existing := range f.users {
		if id == user.ID {
			continue
		}
		if existing.Username == user.Username || existing.Email == user.Email {
			return true
		}
	}
	return false
}

func (f *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	if f.identityTaken(user) {
		return types.User{}, store.ErrDuplicate
	}
	user.ID = f.nextID
	f.nextID++
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Profile != nil {
		profile := *user.Profile
		profile.ID = user.ID
		profile.UserID = user.ID
		profile.CreatedAt = now
		profile.UpdatedAt = now
		user.Profile = &profile
	}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) Update(_ context.Context, user types.User) (types.User, error) {
	if _, ok := f.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	if f.identityTaken(user) {
		return types.User{}, store.ErrDuplicate
	}
	user.UpdatedAt = time.Now().UTC()
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id int) error {
	if _, ok := f.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) GetProfile(_ context.Context, userID int) (types.Profile, error) {
	user, ok := f.users[userID]
	if !ok || user.Profile == nil {
		return types.Profile{}, store.ErrNotFound
	}
	return *user.Profile, nil
}

func (f *fakeUserRepo) SetAvatarURL(_ context.Context, userID int, avatarURL string) error {
	user, ok := f.users[userID]
	if !ok || user.Profile == nil {
		return store.ErrNotFound
	}
	user.Profile.AvatarURL = avatarURL
	f.users[userID] = user
	return nil
}

// fakePostRepo is an in-memory stand-in for the post repository.
type fakePostRepo struct {
	posts      map[int]types.Post
	postCats   map[int][]int
	categories map[int]bool
	nextID     int
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{
		posts:      map[int]types.Post{},
		postCats:   map[int][]int{},
		categories: map[int]bool{},
		nextID:     1,
	}
}

func (f *fakePostRepo) checkCategories(ids []int) error {
	for _, id := range ids {
		if !f.categories[id] {
			return store.ErrMissingCategories
		}
	}
	return nil
}

func (f *fakePostRepo) List(_ context.Context, offset, limit int, filter store.PostFilter) ([]types.PostListItem, int, error) {
	ids := make([]int, 0, len(f.posts))
	for id, post := range f.posts {
		if filter.AuthorID != 0 && post.AuthorID != filter.AuthorID {
			continue
		}
		if filter.CategoryID != 0 && !containsInt(f.postCats[id], filter.CategoryID) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)

	total := len(ids)
	if offset > len(ids) {
		offset = len(ids)
	}
	ids = ids[offset:]
	if limit < len(ids) {
		ids = ids[:limit]
	}

	items := make([]types.PostListItem, 0, len(ids))
	for _, id := range ids {
		post := f.posts[id]
		items = append(items, types.PostListItem{
			ID:          post.ID,
			Title:       post.Title,
			Description: post.Description,
			AuthorID:    post.AuthorID,
			CreatedAt:   post.CreatedAt,
		})
	}
	return items, total, nil
}

func (f *fakePostRepo) Get(_ context.Context, id int) (types.Post, error) {
	post, ok := f.posts[id]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	return post, nil
}

func (f *fakePostRepo) Create(_ context.Context, post types.Post, categoryIDs []int) (types.Post, error) {
	if err := f.checkCategories(categoryIDs); err != nil {
		return types.Post{}, err
	}
	post.ID = f.nextID
	f.nextID++
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	f.posts[post.ID] = post
	f.postCats[post.ID] = append([]int(nil), categoryIDs...)
	return post, nil
}

func (f *fakePostRepo) Update(_ context.Context, post types.Post, categoryIDs []int, replaceCategories bool) (types.Post, error) {
	if _, ok := f.posts[post.ID]; !ok {
		return types.Post{}, store.ErrNotFound
	}
	if replaceCategories {
		if err := f.checkCategories(categoryIDs); err != nil {
			return types.Post{}, err
		}
		f.postCats[post.ID] = append([]int(nil), categoryIDs...)
	}
	post.UpdatedAt = time.Now().UTC()
	f.posts[post.ID] = post
	return post, nil
}

func (f *fakePostRepo) Delete(_ context.Context, id int) error {
	if _, ok := f.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.posts, id)
	delete(f.postCats, id)
	return nil
}

func (f *fakePostRepo) SetCoverImage(_ context.Context, id int, coverImage string) error {
	post, ok := f.posts[id]
	if !ok {
		return store.ErrNotFound
	}
	post.CoverImage = coverImage
	f.posts[id] = post
	return nil
}

func containsInt(values []int, target int) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// fakeCategoryRepo is an in-memory stand-in for the category repository.
// It shares the valid-category set with the post repository so post
// creation sees the categories created through it.
type fakeCategoryRepo struct {
	categories map[int]types.Category
	known      map[int]bool
	nextID     int
}

func newFakeCategoryRepo(known map[int]bool) *fakeCategoryRepo {
	return &fakeCategoryRepo{categories: map[int]types.Category{}, known: known, nextID: 1}
}

func (f *fakeCategoryRepo) List(_ context.Context) ([]types.Category, error) {
	ids := make([]int, 0, len(f.categories))
	for id := range f.categories {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	categories := make([]types.Category, 0, len(ids))
	for _, id := range ids {
		categories = append(categories, f.categories[id])
	}
	return categories, nil
}

func (f *fakeCategoryRepo) Get(_ context.Context, id int) (types.Category, error) {
	category, ok := f.categories[id]
	if !ok {
		return types.Category{}, store.ErrNotFound
	}
	return category, nil
}

func (f *fakeCategoryRepo) nameTaken(category types.Category) bool {
	for id, existing := range f.categories {
		if id != category.ID && existing.Name == category.Name {
			return true
		}
	}
	return false
}

func (f *fakeCategoryRepo) Create(_ context.Context, category types.Category) (types.Category, error) {
	if f.nameTaken(category) {
		return types.Category{}, store.ErrDuplicate
	}
	category.ID = f.nextID
	f.nextID++
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now
	f.categories[category.ID] = category
	f.known[category.ID] = true
	return category, nil
}

func (f *fakeCategoryRepo) Update(_ context.Context, category types.Category) (types.Category, error) {
	existing, ok := f.categories[category.ID]
	if !ok {
		return types.Category{}, store.ErrNotFound
	}
	if f.nameTaken(category) {
		return types.Category{}, store.ErrDuplicate
	}
	existing.Name = category.Name
	existing.UpdatedAt = time.Now().UTC()
	f.categories[category.ID] = existing
	return existing, nil
}

func (f *fakeCategoryRepo) Delete(_ context.Context, id int) error {
	if _, ok := f.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.categories, id)
	delete(f.known, id)
	return nil
}

// testEnv wires the full routing surface against in-memory repositories.
type testEnv struct {
	router   chi.Router
	userRepo *fakeUserRepo
	postRepo *fakePostRepo
	catRepo  *fakeCategoryRepo
	tokens   *auth.TokenService
	userSvc  *services.UserService
	postSvc  *services.PostService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hasher := auth.NewBcryptHasher(4)

	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: "test-secret", TTL: time.Hour})
	require.NoError(t, err)

	userRepo := newFakeUserRepo()
	postRepo := newFakePostRepo()
	catRepo := newFakeCategoryRepo(postRepo.categories)

	userSvc := services.NewUserService(userRepo, hasher, nil, logger)
	postSvc := services.NewPostService(postRepo, nil, logger)
	catSvc := services.NewCategoryService(catRepo)

	validator := auth.NewCredentialValidator(userRepo, hasher)
	credentialGuard := auth.Guard(auth.NewCredentialStrategy(validator), logger)
	tokenGuard := auth.Guard(auth.NewTokenStrategy(tokens), logger)

	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userSvc, tokens, credentialGuard, tokenGuard)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userSvc, tokenGuard, nil)
	})
	router.Route("/posts", func(r chi.Router) {
		handlers.PostRouter(r, postSvc, tokenGuard, nil)
	})
	router.Route("/categories", func(r chi.Router) {
		handlers.CategoryRouter(r, catSvc, tokenGuard)
	})

	return &testEnv{
		router:   router,
		userRepo: userRepo,
		postRepo: postRepo,
		catRepo:  catRepo,
		tokens:   tokens,
		userSvc:  userSvc,
		postSvc:  postSvc,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&value))
	return value
}

// seedUser registers a user through the service so the stored digest is real.
func (e *testEnv) seedUser(t *testing.T, username, email, password string) types.User {
	t.Helper()

	user, err := e.userSvc.Register(context.Background(), types.User{
		Username: username,
		Email:    email,
		Profile:  &types.Profile{Name: "Test", LastName: "User", Age: 30},
	}, password)
	require.NoError(t, err)
	return user
}

// tokenFor mints a bearer token for the given user.
func (e *testEnv) tokenFor(t *testing.T, user types.User) string {
	t.Helper()

	token, err := e.tokens.Issue(auth.Principal{Subject: user.ID})
	require.NoError(t, err)
	return token
}

// seedCategory creates a category owned by the given user.
func (e *testEnv) seedCategory(t *testing.T, name string, creatorID int) types.Category {
	t.Helper()

	category, err := e.catRepo.Create(context.Background(), types.Category{Name: name, CreatedByID: creatorID})
	require.NoError(t, err)
	return category
}

// seedPost creates a post through the service.
func (e *testEnv) seedPost(t *testing.T, authorID int, title string, draft bool, categoryIDs ...int) types.Post {
	t.Helper()

	post, err := e.postSvc.Create(context.Background(), types.Post{
		Title:       title,
		Description: "a description",
		Content:     "some content",
		IsDraft:     draft,
		AuthorID:    authorID,
	}, categoryIDs)
	require.NoError(t, err)
	return post
}
