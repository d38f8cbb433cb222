package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bookdb-api/internal/models"
)

var pageRowColumns = []string{"id", "document_id", "page_number", "text_content", "file_path", "content_type"}

func TestDocumentPageRepositoryCreateBatch(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewDocumentPageRepository(db)

	mock.ExpectBegin()
	for i := 1; i <= 3; i++ {
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO document_pages")).
			WithArgs(int64(7), i, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(100 + i))
	}
	mock.ExpectCommit()

	pages := make([]models.DocumentPage, 3)
	for i := range pages {
		pages[i] = models.DocumentPage{DocumentID: 7, PageNumber: i + 1}
	}
	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.CreateBatch(context.Background(), tx, pages))
	require.NoError(t, tx.Commit())

	assert.Equal(t, int64(101), pages[0].ID)
	assert.Equal(t, int64(103), pages[2].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPageRepositoryCreateBatchDuplicate(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewDocumentPageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO document_pages")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_document_pages_number"})

	err := repo.CreateBatch(context.Background(), nil, []models.DocumentPage{{DocumentID: 1, PageNumber: 1}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "uq_document_pages_number")
}

func TestDocumentPageRepositoryFindDetail(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewDocumentPageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN documents d ON d.id = p.document_id")).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows(append(pageRowColumns, "document_title")).
			AddRow(11, 2, 4, "text", "/uploads/doc_2/page_4.pdf", "application/pdf", "Manual"))

	detail, err := repo.FindDetail(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, "Manual", detail.DocumentTitle)
	assert.Equal(t, 4, detail.PageNumber)
	assert.Equal(t, int64(2), detail.DocumentID)
}

func TestDocumentPageRepositoryListByDocumentOrdersByNumber(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewDocumentPageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.document_id = $1 ORDER BY p.page_number ASC")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(pageRowColumns).
			AddRow(1, 2, 1, nil, nil, nil).
			AddRow(2, 2, 2, nil, nil, nil))

	pages, err := repo.ListByDocument(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, 1, pages[0].PageNumber)
	assert.Nil(t, pages[0].TextContent)
}

func TestDocumentPageRepositoryListByIDs(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewDocumentPageRepository(db)

	pages, err := repo.ListByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, pages)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.id = ANY($1)")).
		WithArgs(pq.Array([]int64{1, 2})).
		WillReturnRows(sqlmock.NewRows(pageRowColumns).AddRow(1, 2, 1, nil, nil, nil))

	pages, err = repo.ListByIDs(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	assert.Len(t, pages, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPageRepositoryFillText(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewDocumentPageRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("AND (text_content IS NULL OR text_content = '')")).
		WithArgs("hello", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.FillText(context.Background(), 5, "hello")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
