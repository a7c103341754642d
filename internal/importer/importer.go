// Package importer loads the initial catalog from CSV files.
//
// Files are read in dependency order (users, genres, categories, titles,
// genre links, reviews, comments). A table that already holds rows is left
// untouched, so the import can be re-run safely.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"yamdb/internal/entity"
	"yamdb/internal/storage"
	"yamdb/internal/textutil"

	"github.com/sirupsen/logrus"
)

// Store is the persistence surface used by the importer.
type Store interface {
	HasRows(ctx context.Context, model interface{}) (bool, error)
	BulkInsert(ctx context.Context, rows interface{}) error
	SyncSequences(ctx context.Context, tables ...string) error
}

// Result describes what happened to one file.
type Result struct {
	File    string
	Rows    int
	Skipped bool
	Reason  string
}

type record map[string]string

type step struct {
	file  string
	table string
	model interface{}
	load  func(records []record) (interface{}, int, error)
}

// Importer copies CSV data from a Source into the Store.
type Importer struct {
	source storage.Source
	store  Store
	logger logrus.FieldLogger
}

// New creates an importer.
func New(source storage.Source, store Store, logger logrus.FieldLogger) *Importer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Importer{source: source, store: store, logger: logger}
}

// Run imports every known file and returns one Result per file.
func (im *Importer) Run(ctx context.Context) ([]Result, error) {
	steps := []step{
		{file: "users.csv", table: "users", model: &entity.DbUser{}, load: loadWith(parseUser)},
		{file: "genre.csv", table: "genres", model: &entity.DbGenre{}, load: loadWith(parseGenre)},
		{file: "category.csv", table: "categories", model: &entity.DbCategory{}, load: loadWith(parseCategory)},
		{file: "titles.csv", table: "titles", model: &entity.DbTitle{}, load: loadWith(parseTitle)},
		{file: "genre_title.csv", table: "", model: &entity.DbTitleGenre{}, load: loadWith(parseTitleGenre)},
		{file: "review.csv", table: "reviews", model: &entity.DbReview{}, load: loadWith(parseReview)},
		{file: "comments.csv", table: "comments", model: &entity.DbComment{}, load: loadWith(parseComment)},
	}

	results := make([]Result, 0, len(steps))
	for _, st := range steps {
		res, err := im.runStep(ctx, st)
		if err != nil {
			return results, fmt.Errorf("import %s: %w", st.file, err)
		}
		log := im.logger.WithField("file", res.File)
		if res.Skipped {
			log.WithField("reason", res.Reason).Info("import skipped")
		} else {
			log.WithField("rows", res.Rows).Info("import finished")
		}
		results = append(results, res)
	}
	return results, nil
}

func (im *Importer) runStep(ctx context.Context, st step) (Result, error) {
	res := Result{File: st.file}

	populated, err := im.store.HasRows(ctx, st.model)
	if err != nil {
		return res, err
	}
	if populated {
		res.Skipped, res.Reason = true, "table already has data"
		return res, nil
	}

	rc, err := im.source.Open(ctx, st.file)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			res.Skipped, res.Reason = true, "file not found"
			return res, nil
		}
		return res, err
	}
	defer rc.Close()

	records, err := readCSV(rc)
	if err != nil {
		return res, err
	}
	if len(records) == 0 {
		res.Skipped, res.Reason = true, "file is empty"
		return res, nil
	}

	rows, n, err := st.load(records)
	if err != nil {
		return res, err
	}
	if err := im.store.BulkInsert(ctx, rows); err != nil {
		return res, err
	}
	if st.table != "" {
		if err := im.store.SyncSequences(ctx, st.table); err != nil {
			return res, err
		}
	}
	res.Rows = n
	return res, nil
}

func loadWith[T any](parse func(record) (T, error)) func([]record) (interface{}, int, error) {
	return func(records []record) (interface{}, int, error) {
		rows := make([]T, 0, len(records))
		for i, rec := range records {
			row, err := parse(rec)
			if err != nil {
				// +2: 表头占第一行
				return nil, 0, fmt.Errorf("line %d: %w", i+2, err)
			}
			rows = append(rows, row)
		}
		return &rows, len(rows), nil
	}
}

func readCSV(r io.Reader) ([]record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var records []record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rec := make(record, len(header))
		for i, name := range header {
			if i < len(row) {
				rec[name] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r record) uintField(field string) (uint, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(r[field]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", field, err)
	}
	return uint(v), nil
}

func (r record) optionalUintField(field string) (*uint, error) {
	if strings.TrimSpace(r[field]) == "" {
		return nil, nil
	}
	v, err := r.uintField(field)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r record) intField(field string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(r[field]))
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", field, err)
	}
	return v, nil
}

func (r record) timeField(field string) (time.Time, error) {
	raw := strings.TrimSpace(r[field])
	if raw == "" {
		return time.Now().UTC(), nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("field %q: unsupported time %q", field, raw)
}

func parseUser(r record) (entity.DbUser, error) {
	id, err := r.uintField("id")
	if err != nil {
		return entity.DbUser{}, err
	}
	role := strings.TrimSpace(r["role"])
	if role == "" {
		role = entity.UserRoleUser
	}
	if !entity.IsValidRole(role) {
		return entity.DbUser{}, fmt.Errorf("field \"role\": unknown role %q", role)
	}
	username := strings.TrimSpace(r["username"])
	if !textutil.IsValidUsername(username) || username == entity.ReservedUsername {
		return entity.DbUser{}, fmt.Errorf("field \"username\": invalid username %q", username)
	}
	return entity.DbUser{
		ID:        id,
		Username:  username,
		Email:     strings.TrimSpace(r["email"]),
		Role:      role,
		IsActive:  true,
		Bio:       textutil.SanitizeText(r["bio"]),
		FirstName: strings.TrimSpace(r["first_name"]),
		LastName:  strings.TrimSpace(r["last_name"]),
	}, nil
}

func parseGenre(r record) (entity.DbGenre, error) {
	id, err := r.uintField("id")
	if err != nil {
		return entity.DbGenre{}, err
	}
	return entity.DbGenre{ID: id, Name: strings.TrimSpace(r["name"]), Slug: strings.TrimSpace(r["slug"])}, nil
}

func parseCategory(r record) (entity.DbCategory, error) {
	id, err := r.uintField("id")
	if err != nil {
		return entity.DbCategory{}, err
	}
	return entity.DbCategory{ID: id, Name: strings.TrimSpace(r["name"]), Slug: strings.TrimSpace(r["slug"])}, nil
}

func parseTitle(r record) (entity.DbTitle, error) {
	id, err := r.uintField("id")
	if err != nil {
		return entity.DbTitle{}, err
	}
	year, err := r.intField("year")
	if err != nil {
		return entity.DbTitle{}, err
	}
	category, err := r.optionalUintField("category")
	if err != nil {
		return entity.DbTitle{}, err
	}
	return entity.DbTitle{
		ID:          id,
		Name:        strings.TrimSpace(r["name"]),
		Year:        year,
		Description: r["description"],
		CategoryID:  category,
	}, nil
}

func parseTitleGenre(r record) (entity.DbTitleGenre, error) {
	titleID, err := r.uintField("title_id")
	if err != nil {
		return entity.DbTitleGenre{}, err
	}
	genreID, err := r.uintField("genre_id")
	if err != nil {
		return entity.DbTitleGenre{}, err
	}
	return entity.DbTitleGenre{TitleID: titleID, GenreID: genreID}, nil
}

func parseReview(r record) (entity.DbReview, error) {
	id, err := r.uintField("id")
	if err != nil {
		return entity.DbReview{}, err
	}
	titleID, err := r.uintField("title_id")
	if err != nil {
		return entity.DbReview{}, err
	}
	author, err := r.uintField("author")
	if err != nil {
		return entity.DbReview{}, err
	}
	score, err := r.intField("score")
	if err != nil {
		return entity.DbReview{}, err
	}
	if score < entity.MinReviewScore || score > entity.MaxReviewScore {
		return entity.DbReview{}, fmt.Errorf("field \"score\": %d out of range", score)
	}
	pubDate, err := r.timeField("pub_date")
	if err != nil {
		return entity.DbReview{}, err
	}
	return entity.DbReview{
		ID:       id,
		TitleID:  titleID,
		AuthorID: author,
		Text:     textutil.SanitizeText(r["text"]),
		Score:    score,
		PubDate:  pubDate,
	}, nil
}

func parseComment(r record) (entity.DbComment, error) {
	id, err := r.uintField("id")
	if err != nil {
		return entity.DbComment{}, err
	}
	reviewID, err := r.uintField("review_id")
	if err != nil {
		return entity.DbComment{}, err
	}
	author, err := r.uintField("author")
	if err != nil {
		return entity.DbComment{}, err
	}
	pubDate, err := r.timeField("pub_date")
	if err != nil {
		return entity.DbComment{}, err
	}
	return entity.DbComment{
		ID:       id,
		ReviewID: reviewID,
		AuthorID: author,
		Text:     textutil.SanitizeText(r["text"]),
		PubDate:  pubDate,
	}, nil
}
