package repo

import (
	"context"
	"database/sql"

	"crewdesk/internal/domain"
)

const subtaskColumns = `id,task_id,title,description,status,priority,due_date,assigned_to,created_by,progress,created_at,updated_at`

func (r Repo) InsertSubtask(ctx context.Context, tx *sql.Tx, s domain.SubTask) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO subtasks(`+subtaskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.TaskID, s.Title, nullable(s.Description), s.Status, s.Priority, s.DueDate,
		nullableStringPtr(s.AssignedTo), s.CreatedBy, s.Progress, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r Repo) UpdateSubtask(ctx context.Context, tx *sql.Tx, s domain.SubTask) error {
	_, err := tx.ExecContext(ctx, `UPDATE subtasks SET title=?, description=?, status=?, priority=?, due_date=?, assigned_to=?, progress=?, updated_at=? WHERE id=?`,
		s.Title, nullable(s.Description), s.Status, s.Priority, s.DueDate,
		nullableStringPtr(s.AssignedTo), s.Progress, s.UpdatedAt, s.ID)
	return err
}

func scanSubtaskRow(scan func(dest ...any) error) (domain.SubTask, error) {
	var s domain.SubTask
	var description, assignedTo sql.NullString
	err := scan(&s.ID, &s.TaskID, &s.Title, &description, &s.Status, &s.Priority, &s.DueDate, &assignedTo, &s.CreatedBy, &s.Progress, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	if description.Valid {
		s.Description = description.String
	}
	if assignedTo.Valid {
		s.AssignedTo = &assignedTo.String
	}
	return s, nil
}

func (r Repo) GetSubtask(ctx context.Context, id string) (domain.SubTask, error) {
	s, err := scanSubtaskRow(r.DB.QueryRowContext(ctx, `SELECT `+subtaskColumns+` FROM subtasks WHERE id=?`, id).Scan)
	if err != nil {
		return s, err
	}
	comments, err := r.ListCommentIDs(ctx, id)
	if err != nil {
		return s, err
	}
	s.Comments = comments
	return s, nil
}

func (r Repo) ListSubtasks(ctx context.Context, taskID string) ([]domain.SubTask, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+subtaskColumns+` FROM subtasks WHERE task_id=? ORDER BY created_at ASC, id ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.SubTask
	for rows.Next() {
		s, err := scanSubtaskRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range res {
		comments, err := r.ListCommentIDs(ctx, res[i].ID)
		if err != nil {
			return nil, err
		}
		res[i].Comments = comments
	}
	return res, nil
}

func (r Repo) listSubtaskIDsWith(ctx context.Context, query queryFn, taskID string) ([]string, error) {
	rows, err := query(ctx, `SELECT id FROM subtasks WHERE task_id=? ORDER BY created_at ASC, id ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r Repo) ListSubtaskIDs(ctx context.Context, taskID string) ([]string, error) {
	return r.listSubtaskIDsWith(ctx, r.DB.QueryContext, taskID)
}

func (r Repo) ListSubtaskIDsTx(ctx context.Context, tx *sql.Tx, taskID string) ([]string, error) {
	return r.listSubtaskIDsWith(ctx, tx.QueryContext, taskID)
}

// SubtaskProgressValues returns the stored progress of every subtask of a task.
func (r Repo) SubtaskProgressValues(ctx context.Context, taskID string) ([]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT progress FROM subtasks WHERE task_id=?`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var values []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (r Repo) DeleteSubtaskTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM subtasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteSubtasksByTaskTx(ctx context.Context, tx *sql.Tx, taskID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM subtasks WHERE task_id=?`, taskID)
	return err
}

// --- comments ---

const commentColumns = `id,subtask_id,author_id,text,parent_comment_id,is_edited,created_at,updated_at`

func (r Repo) InsertComment(ctx context.Context, tx *sql.Tx, c domain.Comment) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO comments(`+commentColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
		c.ID, c.SubTaskID, c.AuthorID, c.Text, nullableStringPtr(c.ParentID), c.IsEdited, c.CreatedAt, c.UpdatedAt)
	return err
}

func scanCommentRow(scan func(dest ...any) error) (domain.Comment, error) {
	var c domain.Comment
	var parent sql.NullString
	err := scan(&c.ID, &c.SubTaskID, &c.AuthorID, &c.Text, &parent, &c.IsEdited, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if parent.Valid {
		c.ParentID = &parent.String
	}
	return c, nil
}

func (r Repo) GetComment(ctx context.Context, id string) (domain.Comment, error) {
	return scanCommentRow(r.DB.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id=?`, id).Scan)
}

func (r Repo) ListComments(ctx context.Context, subtaskID string) ([]domain.Comment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE subtask_id=? ORDER BY created_at ASC, id ASC`, subtaskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Comment
	for rows.Next() {
		c, err := scanCommentRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) ListCommentIDs(ctx context.Context, subtaskID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id FROM comments WHERE subtask_id=? ORDER BY created_at ASC, id ASC`, subtaskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r Repo) DeleteCommentsBySubtaskTx(ctx context.Context, tx *sql.Tx, subtaskID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE subtask_id=?`, subtaskID)
	return err
}

// DeleteCommentsByTaskTx removes every comment under any subtask of the task.
func (r Repo) DeleteCommentsByTaskTx(ctx context.Context, tx *sql.Tx, taskID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE subtask_id IN (SELECT id FROM subtasks WHERE task_id=?)`, taskID)
	return err
}
