package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"crewdesk/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// --- users ---

func (r Repo) InsertUser(ctx context.Context, u domain.User) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO users(id,first_name,last_name,email,avatar,created_at) VALUES (?,?,?,?,?,?)`,
		u.ID, u.FirstName, u.LastName, u.Email, nullableStringPtr(u.Avatar), u.CreatedAt)
	return err
}

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	var avatar sql.NullString
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &avatar, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	if avatar.Valid {
		u.Avatar = &avatar.String
	}
	return u, err
}

func (r Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT id,first_name,last_name,email,avatar,created_at FROM users WHERE id=?`, id))
}

func (r Repo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT id,first_name,last_name,email,avatar,created_at FROM users WHERE email=?`, email))
}

func (r Repo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,first_name,last_name,email,avatar,created_at FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		var u domain.User
		var avatar sql.NullString
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &avatar, &u.CreatedAt); err != nil {
			return nil, err
		}
		if avatar.Valid {
			u.Avatar = &avatar.String
		}
		res = append(res, u)
	}
	return res, nil
}

// SearchUsers matches names and email case-insensitively, for picking
// participants.
func (r Repo) SearchUsers(ctx context.Context, q string) ([]domain.User, error) {
	like := "%" + q + "%"
	rows, err := r.DB.QueryContext(ctx, `SELECT id,first_name,last_name,email,avatar,created_at FROM users
WHERE first_name LIKE ? COLLATE NOCASE OR last_name LIKE ? COLLATE NOCASE OR email LIKE ? COLLATE NOCASE
ORDER BY first_name ASC, last_name ASC, id ASC`, like, like, like)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		var u domain.User
		var avatar sql.NullString
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &avatar, &u.CreatedAt); err != nil {
			return nil, err
		}
		if avatar.Valid {
			u.Avatar = &avatar.String
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// --- tasks ---

const taskColumns = `id,title,description,status,priority,due_date,assigned_to,created_by,progress,created_at,updated_at`

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Title, nullable(t.Description), t.Status, t.Priority, t.DueDate,
		nullableStringPtr(t.AssignedTo), t.CreatedBy, t.Progress, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `UPDATE tasks SET title=?, description=?, status=?, priority=?, due_date=?, assigned_to=?, progress=?, updated_at=? WHERE id=?`,
		t.Title, nullable(t.Description), t.Status, t.Priority, t.DueDate,
		nullableStringPtr(t.AssignedTo), t.Progress, t.UpdatedAt, t.ID)
	return err
}

// UpdateTaskProgress persists a derived progress value outside any transaction.
func (r Repo) UpdateTaskProgress(ctx context.Context, taskID string, progress int, updatedAt string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE tasks SET progress=?, updated_at=? WHERE id=?`, progress, updatedAt, taskID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTaskRow(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var description, assignedTo sql.NullString
	err := scan(&t.ID, &t.Title, &description, &t.Status, &t.Priority, &t.DueDate, &assignedTo, &t.CreatedBy, &t.Progress, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if description.Valid {
		t.Description = description.String
	}
	if assignedTo.Valid {
		t.AssignedTo = &assignedTo.String
	}
	return t, nil
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	t, err := scanTaskRow(r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id).Scan)
	if err != nil {
		return t, err
	}
	return r.loadTaskRefs(ctx, t)
}

func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, id string) (domain.Task, error) {
	t, err := scanTaskRow(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id).Scan)
	if err != nil {
		return t, err
	}
	parts, err := r.listParticipants(ctx, tx.QueryContext, id)
	if err != nil {
		return t, err
	}
	t.Participants = parts
	subs, err := r.listSubtaskIDsWith(ctx, tx.QueryContext, id)
	if err != nil {
		return t, err
	}
	t.Subtasks = subs
	return t, nil
}

func (r Repo) loadTaskRefs(ctx context.Context, t domain.Task) (domain.Task, error) {
	parts, err := r.ListParticipants(ctx, t.ID)
	if err != nil {
		return t, err
	}
	t.Participants = parts
	subs, err := r.ListSubtaskIDs(ctx, t.ID)
	if err != nil {
		return t, err
	}
	t.Subtasks = subs
	return t, nil
}

func (r Repo) DeleteTaskTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) queryTasks(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTaskRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range res {
		res[i], err = r.loadTaskRefs(ctx, res[i])
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (r Repo) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return r.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC, id DESC`)
}

// TasksByUser matches tasks the user created or is assigned to, soonest due first.
func (r Repo) TasksByUser(ctx context.Context, userID, status string) ([]domain.Task, error) {
	clauses := []string{"(assigned_to=? OR created_by=?)"}
	args := []any{userID, userID}
	if status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, status)
	}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY due_date ASC, id ASC`
	return r.queryTasks(ctx, query, args...)
}

// priorityRank orders high before medium before low regardless of collation.
const priorityRank = `CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END`

func (r Repo) TasksByStatus(ctx context.Context, status string) ([]domain.Task, error) {
	return r.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE status=? ORDER BY `+priorityRank+` ASC, due_date ASC, id ASC`, status)
}

func (r Repo) SearchTasks(ctx context.Context, q string) ([]domain.Task, error) {
	pattern := "%" + escapeLike(q) + "%"
	return r.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks
WHERE title LIKE ? ESCAPE '\' COLLATE NOCASE OR description LIKE ? ESCAPE '\' COLLATE NOCASE
ORDER BY created_at DESC, id DESC`, pattern, pattern)
}

func (r Repo) OverdueTasks(ctx context.Context, now string) ([]domain.Task, error) {
	return r.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE status != 'completed' AND due_date < ? ORDER BY due_date ASC, id ASC`, now)
}

func (r Repo) TasksByDueRange(ctx context.Context, start, end string) ([]domain.Task, error) {
	return r.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE due_date >= ? AND due_date <= ? ORDER BY due_date ASC, id ASC`, start, end)
}

// sortColumns whitelists user-supplied sort keys to real expressions.
var sortColumns = map[string]string{
	"due_date":   "due_date",
	"created_at": "created_at",
	"updated_at": "updated_at",
	"title":      "title",
	"status":     "status",
	"progress":   "progress",
	"priority":   priorityRank,
}

func (r Repo) TasksSorted(ctx context.Context, sortBy, order string) ([]domain.Task, error) {
	col, ok := sortColumns[sortBy]
	if !ok {
		return nil, fmt.Errorf("unknown sort column %s", sortBy)
	}
	dir := "ASC"
	if strings.EqualFold(order, "desc") {
		dir = "DESC"
	}
	return r.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY `+col+` `+dir+`, id ASC`)
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

// --- participants ---

type queryFn func(ctx context.Context, query string, args ...any) (*sql.Rows, error)

func (r Repo) listParticipants(ctx context.Context, query queryFn, taskID string) ([]string, error) {
	rows, err := query(ctx, `SELECT user_id FROM task_participants WHERE task_id=? ORDER BY added_at ASC, user_id ASC`, taskID)
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

func (r Repo) ListParticipants(ctx context.Context, taskID string) ([]string, error) {
	return r.listParticipants(ctx, r.DB.QueryContext, taskID)
}

func (r Repo) HasParticipant(ctx context.Context, taskID, userID string) (bool, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT 1 FROM task_participants WHERE task_id=? AND user_id=? LIMIT 1`, taskID, userID)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	return rows.Next(), nil
}

// AddParticipant is a single-statement set insert; duplicates are no-ops.
func (r Repo) AddParticipant(ctx context.Context, taskID, userID, addedAt string) error {
	_, err := r.DB.ExecContext(ctx, `INSERT OR IGNORE INTO task_participants(task_id,user_id,added_at) VALUES (?,?,?)`, taskID, userID, addedAt)
	return err
}

// RemoveParticipant is idempotent; removing an absent member is not an error.
func (r Repo) RemoveParticipant(ctx context.Context, taskID, userID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM task_participants WHERE task_id=? AND user_id=?`, taskID, userID)
	return err
}

func (r Repo) DeleteParticipantsTx(ctx context.Context, tx *sql.Tx, taskID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM task_participants WHERE task_id=?`, taskID)
	return err
}

// --- events ---

func (r Repo) LatestEvents(ctx context.Context, limit int, evtType, entityKind, entityID string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	clauses := []string{"1=1"}
	var args []any
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,entity_kind,entity_id,actor_id,payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var entity sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &entity, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		if entity.Valid {
			e.EntityID = entity.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// --- helpers ---

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}
