package credential

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func timeVal(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestStatusForExpiration(t *testing.T) {
	now := timeVal("2026-01-15")

	tests := []struct {
		name    string
		endDate *time.Time
		current Status
		want    Status
	}{
		{"no end date keeps current", nil, StatusPending, StatusPending},
		{"past end date is expired", ptrTime(timeVal("2026-01-01")), StatusActive, StatusExpired},
		{"within window is expiring soon", ptrTime(timeVal("2026-02-01")), StatusActive, StatusExpiringSoon},
		{"far end date is active", ptrTime(timeVal("2027-01-01")), StatusPending, StatusActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred := &Credential{Status: tt.current, EndDate: tt.endDate}
			assert.Equal(t, tt.want, cred.StatusForExpiration(now))
		})
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewSQLStore(newTestDB(t), "sqlite")
	require.NoError(t, err)
	return store
}

func TestSQLStoreCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cred := &Credential{
		UserID:          1,
		Title:           "Medical License",
		Notes:           "California",
		FileBlobID:      "blob-1",
		FileContentType: "application/pdf",
	}
	require.NoError(t, store.Create(ctx, cred))
	require.NotZero(t, cred.ID)

	got, err := store.Get(ctx, cred.ID)
	require.NoError(t, err)
	assert.Equal(t, "Medical License", got.Title)
	assert.Equal(t, StatusPending, got.Status)
	assert.True(t, got.FileAttached())
	assert.False(t, got.AIProcessed)
}

func TestSQLStoreGetMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), 99)
	assert.Error(t, err)
}

func TestUpdateAnalysisPersistsFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cred := &Credential{UserID: 1, Title: "Untitled", FileBlobID: "blob-1"}
	require.NoError(t, store.Create(ctx, cred))

	result := &AnalysisResult{
		Title:               strPtr("Board Certification"),
		StartDate:           strPtr("2021-05-01"),
		EndDate:             strPtr("2031-05-01"),
		IssuingOrganization: strPtr("American Board of Internal Medicine"),
		CredentialNumber:    strPtr("ABIM-98765"),
		Warnings:            []string{},
	}
	require.NoError(t, store.UpdateAnalysis(ctx, cred.ID, result))

	got, err := store.Get(ctx, cred.ID)
	require.NoError(t, err)
	assert.Equal(t, "Board Certification", got.Title)
	require.NotNil(t, got.StartDate)
	assert.Equal(t, "2021-05-01", got.StartDate.Format("2006-01-02"))
	require.NotNil(t, got.EndDate)
	assert.Equal(t, "2031-05-01", got.EndDate.Format("2006-01-02"))
	assert.True(t, got.AIProcessed)
	assert.NotNil(t, got.AIProcessedAt)
	assert.Equal(t, "American Board of Internal Medicine", got.AIExtractedJSON["issuing_organization"])
	assert.Equal(t, StatusActive, got.Status)
}

func TestUpdateAnalysisBlankTitleKeepsExisting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cred := &Credential{UserID: 1, Title: "DEA Registration"}
	require.NoError(t, store.Create(ctx, cred))

	require.NoError(t, store.UpdateAnalysis(ctx, cred.ID, &AnalysisResult{Warnings: []string{}}))

	got, err := store.Get(ctx, cred.ID)
	require.NoError(t, err)
	assert.Equal(t, "DEA Registration", got.Title)
}

func TestUpdateAnalysisUnparseableDateIsNil(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cred := &Credential{UserID: 1, Title: "License"}
	require.NoError(t, store.Create(ctx, cred))

	result := &AnalysisResult{
		EndDate:  strPtr("sometime next spring"),
		Warnings: []string{},
	}
	require.NoError(t, store.UpdateAnalysis(ctx, cred.ID, result))

	got, err := store.Get(ctx, cred.ID)
	require.NoError(t, err)
	assert.Nil(t, got.EndDate)
	assert.True(t, got.AIProcessed)
}

func TestListExpiringSoon(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	soon := now.Add(10 * 24 * time.Hour)
	far := now.Add(90 * 24 * time.Hour)
	past := now.Add(-1 * 24 * time.Hour)

	for _, cred := range []*Credential{
		{UserID: 1, Title: "Expiring", EndDate: &soon},
		{UserID: 1, Title: "Fine", EndDate: &far},
		{UserID: 1, Title: "Expired", EndDate: &past},
	} {
		require.NoError(t, store.Create(ctx, cred))
	}

	results, err := store.ListExpiringSoon(ctx, now)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Expiring", results[0].Title)
}

func TestTagStoreFindOrCreate(t *testing.T) {
	db := newTestDB(t)
	store, err := NewSQLTagStore(db, "sqlite")
	require.NoError(t, err)
	ctx := context.Background()

	tag, err := store.FindOrCreate(ctx, "  Medical License  ")
	require.NoError(t, err)
	require.NotZero(t, tag.ID, "create must report the new row id")
	assert.Equal(t, "medical license", tag.Name)
	assert.Equal(t, TagColors[0], tag.Color)

	// Same name, different case, resolves to the existing tag.
	again, err := store.FindOrCreate(ctx, "MEDICAL LICENSE")
	require.NoError(t, err)
	assert.Equal(t, tag.ID, again.ID)

	second, err := store.FindOrCreate(ctx, "nursing")
	require.NoError(t, err)
	assert.Equal(t, TagColors[1], second.Color)
}

func TestTagStoreFindOrCreateRejectsBlank(t *testing.T) {
	db := newTestDB(t)
	store, err := NewSQLTagStore(db, "sqlite")
	require.NoError(t, err)

	_, err = store.FindOrCreate(context.Background(), "   ")
	assert.Error(t, err)
}

func TestTagStoreAttachSkipsDuplicates(t *testing.T) {
	db := newTestDB(t)
	store, err := NewSQLTagStore(db, "sqlite")
	require.NoError(t, err)
	ctx := context.Background()

	tag, err := store.FindOrCreate(ctx, "cpr")
	require.NoError(t, err)
	require.NotZero(t, tag.ID)

	require.NoError(t, store.Attach(ctx, 1, tag.ID))
	require.NoError(t, store.Attach(ctx, 1, tag.ID))

	tags, err := store.TagsFor(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	// The association must carry the real tag id, not a zero value.
	assert.Equal(t, tag.ID, tags[0].ID)
}
