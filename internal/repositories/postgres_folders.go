package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/jackc/pgx/v5"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/db"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/models"
)

// PostgresFolderRepository provides PostgreSQL-backed persistence for folders.
type PostgresFolderRepository struct {
	pool db.Pool
}

// NewPostgresFolderRepository constructs a folder repository backed by PostgreSQL.
func NewPostgresFolderRepository(pool db.Pool) *PostgresFolderRepository {
	return &PostgresFolderRepository{pool: pool}
}

// Create persists a folder row.
func (r *PostgresFolderRepository) Create(ctx context.Context, folder models.Folder) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO folders (id, user_id, drive_folder_id, name, color, icon, is_default, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, folder.ID, folder.UserID, folder.RemoteFolderID, folder.Name, folder.Color, folder.Icon, folder.IsDefault, folder.CreatedAt)
	if err != nil {
		if mapped := classify(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert folder: %w", err)
	}

	return nil
}

// Get loads a folder owned by the user.
func (r *PostgresFolderRepository) Get(ctx context.Context, ownerID, folderID string) (models.Folder, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Folder{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var folder models.Folder
	err = conn.QueryRow(ctx, `
        SELECT id, user_id, drive_folder_id, name, color, icon, is_default, created_at
        FROM folders
        WHERE id = $1 AND user_id = $2
    `, folderID, ownerID).Scan(&folder.ID, &folder.UserID, &folder.RemoteFolderID, &folder.Name,
		&folder.Color, &folder.Icon, &folder.IsDefault, &folder.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Folder{}, ErrNotFound
		}
		return models.Folder{}, fmt.Errorf("select folder: %w", err)
	}

	folder.CreatedAt = folder.CreatedAt.UTC()
	return folder, nil
}

// List returns the owner's folders, newest first, each with its video count.
func (r *PostgresFolderRepository) List(ctx context.Context, ownerID string) ([]models.Folder, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT f.id, f.user_id, f.drive_folder_id, f.name, f.color, f.icon, f.is_default, f.created_at,
               COUNT(v.id) AS video_count
        FROM folders f
        LEFT JOIN videos v ON v.folder_id = f.id
        WHERE f.user_id = $1
        GROUP BY f.id, f.user_id, f.drive_folder_id, f.name, f.color, f.icon, f.is_default, f.created_at
        ORDER BY f.created_at DESC
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query folders: %w", err)
	}
	defer rows.Close()

	var folders []models.Folder
	for rows.Next() {
		var folder models.Folder
		if err := rows.Scan(&folder.ID, &folder.UserID, &folder.RemoteFolderID, &folder.Name, &folder.Color,
			&folder.Icon, &folder.IsDefault, &folder.CreatedAt, &folder.VideoCount); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folder.CreatedAt = folder.CreatedAt.UTC()
		folders = append(folders, folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}

	return folders, nil
}

// ExistsByRemoteFolder reports whether a row already mirrors the remote folder.
func (r *PostgresFolderRepository) ExistsByRemoteFolder(ctx context.Context, ownerID, remoteFolderID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	if err := conn.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM folders WHERE user_id = $1 AND drive_folder_id = $2)
    `, ownerID, remoteFolderID).Scan(&exists); err != nil {
		return false, fmt.Errorf("select folder by remote id: %w", err)
	}
	return exists, nil
}

// SetDefault clears the default flag on all of the owner's folders and sets it on one.
// Both writes run in a single transaction that is retried on serialization failures.
func (r *PostgresFolderRepository) SetDefault(ctx context.Context, ownerID, folderID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	err = crdbpgxv5.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
            UPDATE folders SET is_default = FALSE WHERE user_id = $1 AND is_default
        `, ownerID); err != nil {
			return fmt.Errorf("clear default folder: %w", err)
		}

		tag, err := tx.Exec(ctx, `
            UPDATE folders SET is_default = TRUE WHERE id = $1 AND user_id = $2
        `, folderID, ownerID)
		if err != nil {
			return fmt.Errorf("set default folder: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if mapped := classify(err); mapped != nil {
			return mapped
		}
		return err
	}
	return nil
}

// Delete removes the folder row. Videos referencing it fall back to root through the
// ON DELETE SET NULL foreign key.
func (r *PostgresFolderRepository) Delete(ctx context.Context, ownerID, folderID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM folders WHERE id = $1 AND user_id = $2`, folderID, ownerID)
	if err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

var _ FolderRepository = (*PostgresFolderRepository)(nil)
