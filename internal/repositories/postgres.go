package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/db"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/models"
)

const videoColumns = `id, owner_id, folder_id, title, caption, tags, original_size, compressed_size,
        drive_file_id, mime_type, is_public, views_count, status, created_at`

// PostgresVideoRepository provides PostgreSQL-backed persistence for journal videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.VideoRecord) error {
	if err := video.Validate(); err != nil {
		return err
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	status := video.Status
	if status == "" {
		status = models.VideoStatusPending
	}
	tags := video.Tags
	if tags == nil {
		tags = []string{}
	}
	mimeType := video.MimeType
	if strings.TrimSpace(mimeType) == "" {
		mimeType = "video/mp4"
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (`+videoColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
    `, video.ID, video.OwnerID, video.FolderID, video.Title, video.Caption, tags, video.OriginalSize,
		video.CompressedSize, video.RemoteFileID, mimeType, video.IsPublic, video.ViewsCount, string(status), video.CreatedAt)
	if err != nil {
		if mapped := classify(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// Get fetches one of the owner's videos.
func (r *PostgresVideoRepository) Get(ctx context.Context, ownerID, videoID string) (models.VideoRecord, error) {
	return r.getOne(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1 AND owner_id = $2`, videoID, ownerID)
}

// GetPublic fetches a video regardless of owner, as long as it is public.
func (r *PostgresVideoRepository) GetPublic(ctx context.Context, videoID string) (models.VideoRecord, error) {
	return r.getOne(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1 AND is_public`, videoID)
}

func (r *PostgresVideoRepository) getOne(ctx context.Context, query string, args ...any) (models.VideoRecord, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.VideoRecord{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	video, err := scanVideo(conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.VideoRecord{}, ErrNotFound
		}
		return models.VideoRecord{}, fmt.Errorf("select video: %w", err)
	}
	return video, nil
}

// List returns videos matching the query. Without an owner only public videos are listed.
func (r *PostgresVideoRepository) List(ctx context.Context, query models.VideoQuery) ([]models.VideoRecord, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	sql, args := buildListQuery(query)
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	var videos []models.VideoRecord
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	return videos, nil
}

func buildListQuery(query models.VideoQuery) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if query.OwnerID != "" {
		where = append(where, "owner_id = "+arg(query.OwnerID))
	} else {
		where = append(where, "is_public")
	}

	switch {
	case query.FolderID != nil:
		where = append(where, "folder_id = "+arg(*query.FolderID))
	case query.Root:
		where = append(where, "folder_id IS NULL")
	}

	switch query.Filter {
	case models.FilterCompleted:
		where = append(where, "status = "+arg(string(models.VideoStatusCompleted)))
	case models.FilterProcessing:
		where = append(where, "status IN ("+arg(string(models.VideoStatusPending))+", "+
			arg(string(models.VideoStatusCompressing))+", "+arg(string(models.VideoStatusUploading))+")")
	case models.FilterPublic:
		where = append(where, "is_public")
	case models.FilterPrivate:
		where = append(where, "NOT is_public")
	}

	if search := strings.TrimSpace(query.Search); search != "" {
		p := arg("%" + escapeLike(search) + "%")
		where = append(where, "(title ILIKE "+p+" OR caption ILIKE "+p+")")
	}

	order := "created_at DESC"
	switch query.Sort {
	case models.SortOldest:
		order = "created_at ASC"
	case models.SortLargest:
		order = "original_size DESC, created_at DESC"
	case models.SortSmallest:
		order = "original_size ASC, created_at DESC"
	case models.SortMostViews:
		order = "views_count DESC, created_at DESC"
	}

	limit := query.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	sql := `SELECT ` + videoColumns + ` FROM videos WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY ` + order + ` LIMIT ` + arg(limit)
	return sql, args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ExistsByRemoteFile reports whether a row already tracks the remote file.
func (r *PostgresVideoRepository) ExistsByRemoteFile(ctx context.Context, ownerID, remoteFileID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	if err := conn.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM videos WHERE owner_id = $1 AND drive_file_id = $2)
    `, ownerID, remoteFileID).Scan(&exists); err != nil {
		return false, fmt.Errorf("select video by remote file: %w", err)
	}
	return exists, nil
}

// UpdateFolder moves the video to the folder, or to root when folderID is nil.
func (r *PostgresVideoRepository) UpdateFolder(ctx context.Context, ownerID, videoID string, folderID *string) error {
	return r.execOne(ctx, "update video folder", `
        UPDATE videos SET folder_id = $3 WHERE id = $1 AND owner_id = $2
    `, videoID, ownerID, folderID)
}

// UpdateTitle renames the video.
func (r *PostgresVideoRepository) UpdateTitle(ctx context.Context, ownerID, videoID, title string) error {
	return r.execOne(ctx, "update video title", `
        UPDATE videos SET title = $3 WHERE id = $1 AND owner_id = $2
    `, videoID, ownerID, title)
}

// UpdateVisibility marks the video public or private.
func (r *PostgresVideoRepository) UpdateVisibility(ctx context.Context, ownerID, videoID string, public bool) error {
	return r.execOne(ctx, "update video visibility", `
        UPDATE videos SET is_public = $3 WHERE id = $1 AND owner_id = $2
    `, videoID, ownerID, public)
}

// IncrementViews bumps the view counter of a public video and returns the new count.
func (r *PostgresVideoRepository) IncrementViews(ctx context.Context, videoID string) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var views int64
	err = conn.QueryRow(ctx, `
        UPDATE videos SET views_count = views_count + 1
        WHERE id = $1 AND is_public
        RETURNING views_count
    `, videoID).Scan(&views)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("increment video views: %w", err)
	}
	return views, nil
}

// ClearFolder moves every video of the folder back to root.
func (r *PostgresVideoRepository) ClearFolder(ctx context.Context, ownerID, folderID string) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos SET folder_id = NULL WHERE owner_id = $1 AND folder_id = $2
    `, ownerID, folderID)
	if err != nil {
		return 0, fmt.Errorf("clear video folder: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes the video row.
func (r *PostgresVideoRepository) Delete(ctx context.Context, ownerID, videoID string) error {
	return r.execOne(ctx, "delete video", `
        DELETE FROM videos WHERE id = $1 AND owner_id = $2
    `, videoID, ownerID)
}

func (r *PostgresVideoRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, query, args...)
	if err != nil {
		if mapped := classify(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func scanVideo(row pgx.Row) (models.VideoRecord, error) {
	var (
		video  models.VideoRecord
		status string
	)
	err := row.Scan(&video.ID, &video.OwnerID, &video.FolderID, &video.Title, &video.Caption, &video.Tags,
		&video.OriginalSize, &video.CompressedSize, &video.RemoteFileID, &video.MimeType, &video.IsPublic,
		&video.ViewsCount, &status, &video.CreatedAt)
	if err != nil {
		return models.VideoRecord{}, err
	}
	video.Status = models.VideoStatus(status)
	video.CreatedAt = video.CreatedAt.UTC()
	return video, nil
}

var _ VideoRepository = (*PostgresVideoRepository)(nil)
