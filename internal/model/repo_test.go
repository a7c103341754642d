package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"yamdb/internal/config"
	"yamdb/internal/entity"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRepo(t *testing.T) Repository {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gormRepo, err := OpenSQLiteRepository(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gormRepo.DB().DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gormRepo
}

func createUser(t *testing.T, repo Repository, username string) *entity.DbUser {
	t.Helper()
	user := &entity.DbUser{
		Username: username,
		Email:    username + "@example.com",
		Role:     entity.UserRoleUser,
		IsActive: true,
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

func createTitle(t *testing.T, repo Repository, name string, year int, categoryID *uint, genreIDs ...uint) *entity.DbTitle {
	t.Helper()
	title := &entity.DbTitle{Name: name, Year: year, CategoryID: categoryID}
	require.NoError(t, repo.CreateTitle(context.Background(), title, genreIDs))
	return title
}

func TestUserUniqueness(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	createUser(t, repo, "bob")

	err := repo.CreateUser(ctx, &entity.DbUser{Username: "bob", Email: "other@example.com", Role: entity.UserRoleUser})
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	err = repo.CreateUser(ctx, &entity.DbUser{Username: "robert", Email: "bob@example.com", Role: entity.UserRoleUser})
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	got, err := repo.GetUserByUsername(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, "bob@example.com", got.Email)

	_, err = repo.GetUserByUsername(ctx, "Bob")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListUsersSearchAndPaging(t *testing.T) {
	repo := newTestRepo(t)
	for _, name := range []string{"alice", "bob", "bobby", "carol"} {
		createUser(t, repo, name)
	}

	users, meta, err := repo.ListUsers(context.Background(), &entity.UserQuery{BaseParams: entity.BaseParams{Search: "bob"}})
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, int64(2), meta.Total)
	require.Equal(t, "bob", users[0].Username)

	users, meta, err = repo.ListUsers(context.Background(), &entity.UserQuery{BaseParams: entity.BaseParams{Page: 2, PageSize: 3}})
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "carol", users[0].Username)
	require.Equal(t, int64(4), meta.Total)
	require.Equal(t, int64(2), meta.Page)
}

func TestConfirmationCodeIsSingleUse(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := createUser(t, repo, "bob")
	require.NoError(t, repo.UpdateUser(ctx, user.ID, entity.UserUpdates{IsActive: boolPtr(false)}))

	now := time.Now()
	require.NoError(t, repo.SetConfirmationCode(ctx, user.ID, "123456", now, time.Hour))

	stored, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "123456", stored.Confirmation.Value)
	require.NotNil(t, stored.Confirmation.ExpiresAt)
	require.False(t, stored.IsActive)

	require.ErrorIs(t, repo.ConsumeConfirmationCode(ctx, user.ID, "654321", now), gorm.ErrRecordNotFound)
	require.NoError(t, repo.ConsumeConfirmationCode(ctx, user.ID, "123456", now))
	require.ErrorIs(t, repo.ConsumeConfirmationCode(ctx, user.ID, "123456", now), gorm.ErrRecordNotFound)

	stored, err = repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, stored.IsActive)
	require.False(t, stored.Confirmation.IsSet())
}

func TestExpiredConfirmationCode(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	stale := createUser(t, repo, "stale")
	fresh := createUser(t, repo, "fresh")
	forever := createUser(t, repo, "forever")

	issued := time.Now().Add(-2 * time.Hour)
	require.NoError(t, repo.SetConfirmationCode(ctx, stale.ID, "111111", issued, time.Hour))
	require.NoError(t, repo.SetConfirmationCode(ctx, fresh.ID, "222222", time.Now(), time.Hour))
	require.NoError(t, repo.SetConfirmationCode(ctx, forever.ID, "333333", issued, 0))

	require.ErrorIs(t, repo.ConsumeConfirmationCode(ctx, stale.ID, "111111", time.Now()), gorm.ErrRecordNotFound)

	cleared, err := repo.ClearExpiredConfirmationCodes(ctx, time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(1), cleared)

	got, err := repo.GetUserByID(ctx, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, "222222", got.Confirmation.Value)

	got, err = repo.GetUserByID(ctx, forever.ID)
	require.NoError(t, err)
	require.Equal(t, "333333", got.Confirmation.Value)
}

func TestCatalogSlugsAndCategoryDeletion(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	films := &entity.DbCategory{Name: "Films", Slug: "films"}
	require.NoError(t, repo.CreateCategory(ctx, films))
	require.ErrorIs(t, repo.CreateCategory(ctx, &entity.DbCategory{Name: "Other", Slug: "films"}), gorm.ErrDuplicatedKey)

	title := createTitle(t, repo, "Matrix", 1999, &films.ID)

	categories, meta, err := repo.ListCategories(ctx, &entity.BaseParams{Search: "fil"})
	require.NoError(t, err)
	require.Len(t, categories, 1)
	require.Equal(t, int64(1), meta.Total)

	require.NoError(t, repo.DeleteCategoryBySlug(ctx, "films"))
	require.ErrorIs(t, repo.DeleteCategoryBySlug(ctx, "films"), gorm.ErrRecordNotFound)

	got, err := repo.GetTitle(ctx, title.ID)
	require.NoError(t, err)
	require.Nil(t, got.CategoryID)
	require.Nil(t, got.Category)
}

func TestTitleFiltersGenresAndRating(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	books := &entity.DbCategory{Name: "Books", Slug: "books"}
	require.NoError(t, repo.CreateCategory(ctx, books))
	drama := &entity.DbGenre{Name: "Drama", Slug: "drama"}
	comedy := &entity.DbGenre{Name: "Comedy", Slug: "comedy"}
	require.NoError(t, repo.CreateGenre(ctx, drama))
	require.NoError(t, repo.CreateGenre(ctx, comedy))

	war := createTitle(t, repo, "War and Peace", 1869, &books.ID, drama.ID, drama.ID)
	createTitle(t, repo, "Three Men in a Boat", 1889, &books.ID, comedy.ID)
	createTitle(t, repo, "Untitled", 2001, nil)

	alice := createUser(t, repo, "alice")
	bob := createUser(t, repo, "bob")
	require.NoError(t, repo.CreateReview(ctx, &entity.DbReview{TitleID: war.ID, AuthorID: alice.ID, Text: "long", Score: 7}))
	require.NoError(t, repo.CreateReview(ctx, &entity.DbReview{TitleID: war.ID, AuthorID: bob.ID, Text: "great", Score: 8}))

	got, err := repo.GetTitle(ctx, war.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Rating)
	require.InDelta(t, 7.5, *got.Rating, 0.001)
	require.Len(t, got.Genres, 1)
	require.Equal(t, "books", got.Category.Slug)

	tests := []struct {
		name  string
		query entity.TitleQuery
		want  int
	}{
		{"all", entity.TitleQuery{}, 3},
		{"by genre", entity.TitleQuery{Genre: "comedy"}, 1},
		{"by category", entity.TitleQuery{Category: "books"}, 2},
		{"by name", entity.TitleQuery{Name: "peace"}, 1},
		{"by year", entity.TitleQuery{Year: 2001}, 1},
		{"unknown genre", entity.TitleQuery{Genre: "horror"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.query
			titles, meta, err := repo.ListTitles(ctx, &q)
			require.NoError(t, err)
			require.Len(t, titles, tt.want)
			require.Equal(t, int64(tt.want), meta.Total)
		})
	}

	genres := []uint{comedy.ID}
	name := "War & Peace"
	require.NoError(t, repo.UpdateTitle(ctx, war.ID, entity.TitleUpdates{Name: &name}, &genres))
	got, err = repo.GetTitle(ctx, war.ID)
	require.NoError(t, err)
	require.Equal(t, "War & Peace", got.Name)
	require.Len(t, got.Genres, 1)
	require.Equal(t, "comedy", got.Genres[0].Slug)

	require.ErrorIs(t, repo.UpdateTitle(ctx, 9999, entity.TitleUpdates{Name: &name}, nil), gorm.ErrRecordNotFound)
}

func TestDeleteTitleCascades(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	genre := &entity.DbGenre{Name: "Drama", Slug: "drama"}
	require.NoError(t, repo.CreateGenre(ctx, genre))
	title := createTitle(t, repo, "Hamlet", 1603, nil, genre.ID)
	author := createUser(t, repo, "alice")

	review := &entity.DbReview{TitleID: title.ID, AuthorID: author.ID, Text: "to be", Score: 9}
	require.NoError(t, repo.CreateReview(ctx, review))
	require.NoError(t, repo.CreateComment(ctx, &entity.DbComment{ReviewID: review.ID, AuthorID: author.ID, Text: "or not"}))

	require.NoError(t, repo.DeleteTitle(ctx, title.ID))

	for _, model := range []interface{}{&entity.DbTitle{}, &entity.DbTitleGenre{}, &entity.DbReview{}, &entity.DbComment{}} {
		has, err := repo.HasRows(ctx, model)
		require.NoError(t, err)
		require.False(t, has, "%T should be empty", model)
	}
	has, err := repo.HasRows(ctx, &entity.DbGenre{})
	require.NoError(t, err)
	require.True(t, has)
}

func TestDeleteUserCascades(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	title := createTitle(t, repo, "Hamlet", 1603, nil)
	alice := createUser(t, repo, "alice")
	bob := createUser(t, repo, "bob")

	aliceReview := &entity.DbReview{TitleID: title.ID, AuthorID: alice.ID, Text: "a", Score: 5}
	bobReview := &entity.DbReview{TitleID: title.ID, AuthorID: bob.ID, Text: "b", Score: 6}
	require.NoError(t, repo.CreateReview(ctx, aliceReview))
	require.NoError(t, repo.CreateReview(ctx, bobReview))
	require.NoError(t, repo.CreateComment(ctx, &entity.DbComment{ReviewID: aliceReview.ID, AuthorID: bob.ID, Text: "on alice"}))
	require.NoError(t, repo.CreateComment(ctx, &entity.DbComment{ReviewID: bobReview.ID, AuthorID: alice.ID, Text: "by alice"}))
	require.NoError(t, repo.CreateComment(ctx, &entity.DbComment{ReviewID: bobReview.ID, AuthorID: bob.ID, Text: "by bob"}))

	require.NoError(t, repo.DeleteUser(ctx, alice.ID))
	require.ErrorIs(t, repo.DeleteUser(ctx, alice.ID), gorm.ErrRecordNotFound)

	reviews, _, err := repo.ListReviews(ctx, title.ID, nil)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	require.Equal(t, "bob", reviews[0].Author.Username)

	comments, _, err := repo.ListComments(ctx, bobReview.ID, nil)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	require.Equal(t, "by bob", comments[0].Text)
}

func TestDuplicateReviewRejected(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	title := createTitle(t, repo, "Hamlet", 1603, nil)
	author := createUser(t, repo, "alice")

	require.NoError(t, repo.CreateReview(ctx, &entity.DbReview{TitleID: title.ID, AuthorID: author.ID, Text: "first", Score: 5}))
	err := repo.CreateReview(ctx, &entity.DbReview{TitleID: title.ID, AuthorID: author.ID, Text: "second", Score: 6})
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestConcurrentDuplicateReviewStoresOneRow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	title := createTitle(t, repo, "Hamlet", 1603, nil)
	author := createUser(t, repo, "alice")

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- repo.CreateReview(ctx, &entity.DbReview{TitleID: title.ID, AuthorID: author.ID, Text: fmt.Sprintf("try %d", i), Score: 5})
		}(i)
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, gorm.ErrDuplicatedKey):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, attempts-1, dup)

	reviews, meta, err := repo.ListReviews(ctx, title.ID, nil)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	require.Equal(t, int64(1), meta.Total)
}

func TestGetReviewScopedToTitle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	hamlet := createTitle(t, repo, "Hamlet", 1603, nil)
	lear := createTitle(t, repo, "King Lear", 1606, nil)
	author := createUser(t, repo, "alice")

	review := &entity.DbReview{TitleID: hamlet.ID, AuthorID: author.ID, Text: "x", Score: 5}
	require.NoError(t, repo.CreateReview(ctx, review))

	_, err := repo.GetReview(ctx, lear.ID, review.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	got, err := repo.GetReview(ctx, hamlet.ID, review.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Author.Username)
}

func TestBulkInsertKeepsIDs(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	has, err := repo.HasRows(ctx, &entity.DbGenre{})
	require.NoError(t, err)
	require.False(t, has)

	genres := []entity.DbGenre{{ID: 10, Name: "Drama", Slug: "drama"}, {ID: 20, Name: "Comedy", Slug: "comedy"}}
	require.NoError(t, repo.BulkInsert(ctx, &genres))
	require.NoError(t, repo.SyncSequences(ctx, "genres"))

	found, err := repo.FindGenresBySlugs(ctx, []string{"drama", "comedy", "missing"})
	require.NoError(t, err)
	require.Len(t, found, 2)
	require.Equal(t, uint(20), found[0].ID)
}

func TestSeedSuperuser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	cfg := config.Config{SuperuserUsername: "root", SuperuserEmail: "root@example.com", SuperuserPassword: "s3cret"}

	require.NoError(t, SeedSuperuser(ctx, repo, cfg))
	user, err := repo.GetUserByUsername(ctx, "root")
	require.NoError(t, err)
	require.True(t, user.IsSuperuser)
	require.True(t, user.IsActive)
	require.Equal(t, entity.UserRoleAdmin, user.Role)

	cfg.SuperuserEmail = "admin@example.com"
	require.NoError(t, SeedSuperuser(ctx, repo, cfg))
	user, err = repo.GetUserByUsername(ctx, "root")
	require.NoError(t, err)
	require.Equal(t, "admin@example.com", user.Email)

	count, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestSeedSuperuserRequiresEmail(t *testing.T) {
	repo := newTestRepo(t)
	require.Error(t, SeedSuperuser(context.Background(), repo, config.Config{SuperuserUsername: "root"}))
	require.NoError(t, SeedSuperuser(context.Background(), repo, config.Config{}))
}

func boolPtr(v bool) *bool { return &v }
