package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/elance/franquias-portal-go/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("postgres")

// Store is the pgx-backed port.Store.
type Store struct {
	Pool *pgxpool.Pool
}

// New wraps a pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// Ping checks the pool.
func (s *Store) Ping(ctx context.Context) error {
	return mapErr("ping", "", "", s.Pool.Ping(ctx))
}

// --- Profiles & franchises ---

const profileSelect = `SELECT id, email, full_name, phone, role, franchise_unit_id, permissions FROM profiles`

func scanProfile(row pgx.Row) (domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.Phone, &p.Role, &p.FranchiseUnitID, &p.Permissions)
	return p, err
}

func (s *Store) queryProfiles(ctx context.Context, op, sql string, args ...any) ([]domain.Profile, error) {
	rows, err := s.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapErr(op, "profile", "", err)
	}
	defer rows.Close()
	out := []domain.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, mapErr(op, "profile", "", err)
		}
		out = append(out, p)
	}
	return out, mapErr(op, "profile", "", rows.Err())
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetProfile")
	defer span.End()

	p, err := scanProfile(s.Pool.QueryRow(ctx, profileSelect+` WHERE id=$1`, userID))
	if err != nil {
		return nil, mapErr("GetProfile", "profile", userID, err)
	}
	return &p, nil
}

func (s *Store) UpdateProfile(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Postgres.UpdateProfile")
	defer span.End()

	perms := p.Permissions
	if perms == nil {
		perms = map[string]bool{}
	}
	out, err := scanProfile(s.Pool.QueryRow(ctx, `UPDATE profiles
		SET full_name=$2, phone=$3, role=$4, franchise_unit_id=$5, permissions=$6
		WHERE id=$1
		RETURNING id, email, full_name, phone, role, franchise_unit_id, permissions`,
		p.ID, p.FullName, p.Phone, p.Role, p.FranchiseUnitID, perms))
	if err != nil {
		return nil, mapErr("UpdateProfile", "profile", p.ID, err)
	}
	return &out, nil
}

func (s *Store) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	return s.queryProfiles(ctx, "ListProfiles", profileSelect+` ORDER BY full_name`)
}

func (s *Store) ListProfilesByIDs(ctx context.Context, ids []string) ([]domain.Profile, error) {
	if len(ids) == 0 {
		return []domain.Profile{}, nil
	}
	return s.queryProfiles(ctx, "ListProfilesByIDs", profileSelect+` WHERE id = ANY($1)`, ids)
}

func (s *Store) ListProfilesByFranchise(ctx context.Context, franchiseID string) ([]domain.Profile, error) {
	return s.queryProfiles(ctx, "ListProfilesByFranchise", profileSelect+` WHERE franchise_unit_id=$1 ORDER BY id`, franchiseID)
}

func (s *Store) ListFranchises(ctx context.Context) ([]domain.FranchiseUnit, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, name, logo_url, icon_url, site_title FROM franchise_units ORDER BY name`)
	if err != nil {
		return nil, mapErr("ListFranchises", "franchise", "", err)
	}
	defer rows.Close()
	out := []domain.FranchiseUnit{}
	for rows.Next() {
		var u domain.FranchiseUnit
		if err := rows.Scan(&u.ID, &u.Name, &u.LogoURL, &u.IconURL, &u.SiteTitle); err != nil {
			return nil, mapErr("ListFranchises", "franchise", "", err)
		}
		out = append(out, u)
	}
	return out, mapErr("ListFranchises", "franchise", "", rows.Err())
}

func (s *Store) GetFranchise(ctx context.Context, id string) (*domain.FranchiseUnit, error) {
	var u domain.FranchiseUnit
	err := s.Pool.QueryRow(ctx, `SELECT id, name, logo_url, icon_url, site_title FROM franchise_units WHERE id=$1`, id).
		Scan(&u.ID, &u.Name, &u.LogoURL, &u.IconURL, &u.SiteTitle)
	if err != nil {
		return nil, mapErr("GetFranchise", "franchise", id, err)
	}
	return &u, nil
}

func (s *Store) CreateFranchise(ctx context.Context, u *domain.FranchiseUnit) (*domain.FranchiseUnit, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CreateFranchise")
	defer span.End()

	out := *u
	err := s.Pool.QueryRow(ctx, `INSERT INTO franchise_units (id, name, logo_url, icon_url, site_title)
		VALUES (COALESCE(NULLIF($1, ''), gen_random_uuid()::text), $2, $3, $4, $5) RETURNING id`,
		u.ID, u.Name, u.LogoURL, u.IconURL, u.SiteTitle).Scan(&out.ID)
	if err != nil {
		return nil, mapErr("CreateFranchise", "franchise", u.ID, err)
	}
	return &out, nil
}

func (s *Store) UpdateFranchise(ctx context.Context, u *domain.FranchiseUnit) (*domain.FranchiseUnit, error) {
	ctx, span := tracer.Start(ctx, "Postgres.UpdateFranchise")
	defer span.End()

	tag, err := s.Pool.Exec(ctx, `UPDATE franchise_units SET name=$2, logo_url=$3, icon_url=$4, site_title=$5 WHERE id=$1`,
		u.ID, u.Name, u.LogoURL, u.IconURL, u.SiteTitle)
	if err != nil {
		return nil, mapErr("UpdateFranchise", "franchise", u.ID, err)
	}
	if err := notFoundIfNone(tag, "franchise", u.ID); err != nil {
		return nil, err
	}
	out := *u
	return &out, nil
}

// --- Tasks ---

// CreateTasks writes tasks and steps in one transaction, queued as a single
// pgx batch.
func (s *Store) CreateTasks(ctx context.Context, tasks []domain.Task) ([]domain.Task, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CreateTasks")
	defer span.End()

	if len(tasks) == 0 {
		return []domain.Task{}, nil
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, mapErr("CreateTasks", "task", "", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, t := range tasks {
		batch.Queue(`INSERT INTO tasks (title, description, due_date, status, priority, created_by, assigned_to, franchise_id)
			VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8) RETURNING id, created_at`,
			t.Title, t.Description, t.DueDate, t.Status, t.Priority, t.CreatedBy, t.AssignedTo, t.FranchiseID)
	}
	br := tx.SendBatch(ctx, batch)
	out := make([]domain.Task, len(tasks))
	for i, t := range tasks {
		if err := br.QueryRow().Scan(&t.ID, &t.CreatedAt); err != nil {
			br.Close()
			return nil, mapErr("CreateTasks", "task", "", err)
		}
		out[i] = t
	}
	if err := br.Close(); err != nil {
		return nil, mapErr("CreateTasks", "task", "", err)
	}

	steps := &pgx.Batch{}
	for i := range out {
		out[i].Steps = append([]domain.TaskStep(nil), out[i].Steps...)
		for _, st := range out[i].Steps {
			steps.Queue(`INSERT INTO task_steps (task_id, title, completed, order_index) VALUES ($1, $2, $3, $4) RETURNING id`,
				out[i].ID, st.Title, st.Completed, st.OrderIndex)
		}
	}
	if steps.Len() > 0 {
		br := tx.SendBatch(ctx, steps)
		for i := range out {
			for j := range out[i].Steps {
				out[i].Steps[j].TaskID = out[i].ID
				if err := br.QueryRow().Scan(&out[i].Steps[j].ID); err != nil {
					br.Close()
					return nil, mapErr("CreateTasks", "task step", "", err)
				}
			}
		}
		if err := br.Close(); err != nil {
			return nil, mapErr("CreateTasks", "task step", "", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapErr("CreateTasks", "task", "", err)
	}
	return out, nil
}

const taskSelect = `SELECT id, title, description, due_date::text, status, priority, created_by, assigned_to, franchise_id, created_at FROM tasks`

func (s *Store) queryTasks(ctx context.Context, op, sql string, args ...any) ([]domain.Task, error) {
	rows, err := s.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapErr(op, "task", "", err)
	}
	defer rows.Close()

	out := []domain.Task{}
	for rows.Next() {
		var t domain.Task
		var status string
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.DueDate, &status, &t.Priority,
			&t.CreatedBy, &t.AssignedTo, &t.FranchiseID, &t.CreatedAt); err != nil {
			return nil, mapErr(op, "task", "", err)
		}
		if st, ok := domain.NormalizeTaskStatus(status); ok {
			t.Status = st
		} else {
			t.Status = domain.TaskTodo
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(op, "task", "", err)
	}
	if err := s.attachSteps(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) attachSteps(ctx context.Context, tasks []domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	ids := make([]string, len(tasks))
	index := make(map[string]int, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
		index[t.ID] = i
	}

	rows, err := s.Pool.Query(ctx, `SELECT id, task_id, title, completed, order_index FROM task_steps
		WHERE task_id = ANY($1) ORDER BY order_index`, ids)
	if err != nil {
		return mapErr("ListTaskSteps", "task step", "", err)
	}
	defer rows.Close()
	for rows.Next() {
		var st domain.TaskStep
		if err := rows.Scan(&st.ID, &st.TaskID, &st.Title, &st.Completed, &st.OrderIndex); err != nil {
			return mapErr("ListTaskSteps", "task step", "", err)
		}
		i := index[st.TaskID]
		tasks[i].Steps = append(tasks[i].Steps, st)
	}
	return mapErr("ListTaskSteps", "task step", "", rows.Err())
}

func (s *Store) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	tasks, err := s.queryTasks(ctx, "GetTask", taskSelect+` WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, &domain.ErrNotFound{Resource: "task", ID: id}
	}
	return &tasks[0], nil
}

func (s *Store) ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListTasks")
	defer span.End()

	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch {
	case f.Either && f.FranchiseID != "":
		where = append(where, fmt.Sprintf("(assigned_to = %s OR (assigned_to IS NULL AND franchise_id = %s))",
			arg(f.AssignedTo), arg(f.FranchiseID)))
	case f.Either || f.AssignedTo != "":
		where = append(where, "assigned_to = "+arg(f.AssignedTo))
	case f.FranchiseID != "":
		where = append(where, "franchise_id = "+arg(f.FranchiseID))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(string(f.Status)))
	}

	sql := taskSelect
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY created_at DESC"
	return s.queryTasks(ctx, "ListTasks", sql, args...)
}

func (s *Store) UpdateTaskStatus(ctx context.Context, id string, status domain.TaskStatus) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE tasks SET status=$2 WHERE id=$1`, id, status)
	if err != nil {
		return mapErr("UpdateTaskStatus", "task", id, err)
	}
	return notFoundIfNone(tag, "task", id)
}

func (s *Store) SetStepCompleted(ctx context.Context, taskID, stepID string, completed bool) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE task_steps SET completed=$3 WHERE id=$1 AND task_id=$2`, stepID, taskID, completed)
	if err != nil {
		return mapErr("SetStepCompleted", "task step", stepID, err)
	}
	return notFoundIfNone(tag, "task step", stepID)
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM tasks WHERE id=$1`, id)
	if err != nil {
		return mapErr("DeleteTask", "task", id, err)
	}
	return notFoundIfNone(tag, "task", id)
}

// --- Templates ---

func (s *Store) CreateTemplate(ctx context.Context, tpl *domain.TaskTemplate) (*domain.TaskTemplate, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, mapErr("CreateTemplate", "task template", "", err)
	}
	defer tx.Rollback(ctx)

	out := *tpl
	err = tx.QueryRow(ctx, `INSERT INTO task_templates (title, description, trigger_event) VALUES ($1, $2, $3) RETURNING id`,
		out.Title, out.Description, out.TriggerEvent).Scan(&out.ID)
	if err != nil {
		return nil, mapErr("CreateTemplate", "task template", "", err)
	}
	out.Steps = append([]domain.TemplateStep(nil), tpl.Steps...)
	for i := range out.Steps {
		out.Steps[i].TemplateID = out.ID
		err := tx.QueryRow(ctx, `INSERT INTO task_template_steps (template_id, title, order_index) VALUES ($1, $2, $3) RETURNING id`,
			out.ID, out.Steps[i].Title, out.Steps[i].OrderIndex).Scan(&out.Steps[i].ID)
		if err != nil {
			return nil, mapErr("CreateTemplate", "task template step", "", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, mapErr("CreateTemplate", "task template", "", err)
	}
	return &out, nil
}

func (s *Store) queryTemplates(ctx context.Context, op, sql string, args ...any) ([]domain.TaskTemplate, error) {
	rows, err := s.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapErr(op, "task template", "", err)
	}
	out := []domain.TaskTemplate{}
	index := map[string]int{}
	for rows.Next() {
		var t domain.TaskTemplate
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.TriggerEvent); err != nil {
			rows.Close()
			return nil, mapErr(op, "task template", "", err)
		}
		index[t.ID] = len(out)
		out = append(out, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapErr(op, "task template", "", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(out))
	for _, t := range out {
		ids = append(ids, t.ID)
	}
	steps, err := s.Pool.Query(ctx, `SELECT id, template_id, title, order_index FROM task_template_steps
		WHERE template_id = ANY($1) ORDER BY order_index`, ids)
	if err != nil {
		return nil, mapErr(op, "task template step", "", err)
	}
	defer steps.Close()
	for steps.Next() {
		var st domain.TemplateStep
		if err := steps.Scan(&st.ID, &st.TemplateID, &st.Title, &st.OrderIndex); err != nil {
			return nil, mapErr(op, "task template step", "", err)
		}
		i := index[st.TemplateID]
		out[i].Steps = append(out[i].Steps, st)
	}
	return out, mapErr(op, "task template step", "", steps.Err())
}

func (s *Store) GetTemplate(ctx context.Context, id string) (*domain.TaskTemplate, error) {
	out, err := s.queryTemplates(ctx, "GetTemplate",
		`SELECT id, title, description, trigger_event FROM task_templates WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, &domain.ErrNotFound{Resource: "task template", ID: id}
	}
	return &out[0], nil
}

func (s *Store) ListTemplates(ctx context.Context) ([]domain.TaskTemplate, error) {
	return s.queryTemplates(ctx, "ListTemplates",
		`SELECT id, title, description, trigger_event FROM task_templates ORDER BY title`)
}

// --- Notifications ---

// CreateNotifications inserts every row with one multi-row statement.
func (s *Store) CreateNotifications(ctx context.Context, notifs []domain.Notification) ([]domain.Notification, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CreateNotifications")
	defer span.End()

	if len(notifs) == 0 {
		return []domain.Notification{}, nil
	}

	values := make([]string, 0, len(notifs))
	args := make([]any, 0, len(notifs)*5)
	for i, n := range notifs {
		b := i * 5
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", b+1, b+2, b+3, b+4, b+5))
		args = append(args, n.UserID, n.Title, n.Message, n.Link, n.TaskID)
	}
	rows, err := s.Pool.Query(ctx, `INSERT INTO notifications (user_id, title, message, link, task_id) VALUES `+
		strings.Join(values, ", ")+` RETURNING id, created_at`, args...)
	if err != nil {
		return nil, mapErr("CreateNotifications", "notification", "", err)
	}
	defer rows.Close()

	out := make([]domain.Notification, 0, len(notifs))
	for i := 0; rows.Next(); i++ {
		n := notifs[i]
		if err := rows.Scan(&n.ID, &n.CreatedAt); err != nil {
			return nil, mapErr("CreateNotifications", "notification", "", err)
		}
		out = append(out, n)
	}
	return out, mapErr("CreateNotifications", "notification", "", rows.Err())
}

func (s *Store) ListNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, user_id, title, message, link, read, task_id, created_at
		FROM notifications WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, mapErr("ListNotifications", "notification", "", err)
	}
	defer rows.Close()
	out := []domain.Notification{}
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Link, &n.Read, &n.TaskID, &n.CreatedAt); err != nil {
			return nil, mapErr("ListNotifications", "notification", "", err)
		}
		out = append(out, n)
	}
	return out, mapErr("ListNotifications", "notification", "", rows.Err())
}

func (s *Store) MarkNotificationRead(ctx context.Context, userID, id string) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE notifications SET read=true WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return mapErr("MarkNotificationRead", "notification", id, err)
	}
	return notFoundIfNone(tag, "notification", id)
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	_, err := s.Pool.Exec(ctx, `UPDATE notifications SET read=true WHERE user_id=$1 AND NOT read`, userID)
	return mapErr("MarkAllNotificationsRead", "notification", "", err)
}

// --- Auctions ---

const auctionSelect = `SELECT id, process_number, description, vara, status, valuation_value::text, minimum_bid::text,
	first_auction_date, second_auction_date, comitente_id, arrematante_id, franchise_id, created_at FROM auctions`

func scanAuction(row pgx.Row) (domain.Auction, error) {
	var a domain.Auction
	var valuation, minimum *string
	err := row.Scan(&a.ID, &a.ProcessNumber, &a.Description, &a.Vara, &a.Status, &valuation, &minimum,
		&a.FirstAuctionDate, &a.SecondAuctionDate, &a.ComitenteID, &a.ArrematanteID, &a.FranchiseID, &a.CreatedAt)
	if err != nil {
		return a, err
	}
	if a.ValuationValue, err = nullDecimal(valuation); err != nil {
		return a, err
	}
	a.MinimumBid, err = nullDecimal(minimum)
	return a, err
}

func nullDecimal(s *string) (decimal.NullDecimal, error) {
	if s == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func (s *Store) CreateAuction(ctx context.Context, a *domain.Auction) (*domain.Auction, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CreateAuction")
	defer span.End()

	out, err := scanAuction(s.Pool.QueryRow(ctx, `INSERT INTO auctions
		(process_number, description, vara, status, valuation_value, minimum_bid, first_auction_date,
		 second_auction_date, comitente_id, franchise_id)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8, $9, $10)
		RETURNING id, process_number, description, vara, status, valuation_value::text, minimum_bid::text,
		first_auction_date, second_auction_date, comitente_id, arrematante_id, franchise_id, created_at`,
		a.ProcessNumber, a.Description, a.Vara, a.Status, a.ValuationValue, a.MinimumBid,
		a.FirstAuctionDate, a.SecondAuctionDate, a.ComitenteID, a.FranchiseID))
	if err != nil {
		return nil, mapErr("CreateAuction", "auction", "", err)
	}
	return &out, nil
}

func (s *Store) GetAuction(ctx context.Context, id string) (*domain.Auction, error) {
	a, err := scanAuction(s.Pool.QueryRow(ctx, auctionSelect+` WHERE id=$1`, id))
	if err != nil {
		return nil, mapErr("GetAuction", "auction", id, err)
	}
	return &a, nil
}

func (s *Store) ListAuctions(ctx context.Context, franchiseID string) ([]domain.Auction, error) {
	sql := auctionSelect
	var args []any
	if franchiseID != "" {
		sql += ` WHERE franchise_id=$1`
		args = append(args, franchiseID)
	}
	rows, err := s.Pool.Query(ctx, sql+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, mapErr("ListAuctions", "auction", "", err)
	}
	defer rows.Close()
	out := []domain.Auction{}
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, mapErr("ListAuctions", "auction", "", err)
		}
		out = append(out, a)
	}
	return out, mapErr("ListAuctions", "auction", "", rows.Err())
}

func (s *Store) UpdateAuctionStatus(ctx context.Context, id string, status domain.AuctionStatus) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE auctions SET status=$2 WHERE id=$1`, id, status)
	if err != nil {
		return mapErr("UpdateAuctionStatus", "auction", id, err)
	}
	return notFoundIfNone(tag, "auction", id)
}

func (s *Store) AwardAuction(ctx context.Context, id, bidderID string) (*domain.Auction, error) {
	ctx, span := tracer.Start(ctx, "Postgres.AwardAuction")
	defer span.End()

	a, err := scanAuction(s.Pool.QueryRow(ctx, `UPDATE auctions SET status=$2, arrematante_id=$3 WHERE id=$1
		RETURNING id, process_number, description, vara, status, valuation_value::text, minimum_bid::text,
		first_auction_date, second_auction_date, comitente_id, arrematante_id, franchise_id, created_at`,
		id, domain.AuctionArrematado, bidderID))
	if err != nil {
		return nil, mapErr("AwardAuction", "auction", id, err)
	}
	return &a, nil
}

// --- Leads ---

const leadColumns = `id, name, email, phone, source, status, notes, franchise_id, tags, type, cpf_cnpj, address, created_at`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var l domain.Lead
	err := row.Scan(&l.ID, &l.Name, &l.Email, &l.Phone, &l.Source, &l.Status, &l.Notes, &l.FranchiseID,
		&l.Tags, &l.Type, &l.CPFCNPJ, &l.Address, &l.CreatedAt)
	return l, err
}

func (s *Store) CreateLead(ctx context.Context, lead *domain.Lead) (*domain.Lead, error) {
	tags := lead.Tags
	if tags == nil {
		tags = []string{}
	}
	l, err := scanLead(s.Pool.QueryRow(ctx, `INSERT INTO leads
		(name, email, phone, source, status, notes, franchise_id, tags, type, cpf_cnpj, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING `+leadColumns,
		lead.Name, lead.Email, lead.Phone, lead.Source, lead.Status, lead.Notes, lead.FranchiseID,
		tags, lead.Type, lead.CPFCNPJ, lead.Address))
	if err != nil {
		return nil, mapErr("CreateLead", "lead", "", err)
	}
	return &l, nil
}

func (s *Store) GetLead(ctx context.Context, id string) (*domain.Lead, error) {
	l, err := scanLead(s.Pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id=$1`, id))
	if err != nil {
		return nil, mapErr("GetLead", "lead", id, err)
	}
	return &l, nil
}

func (s *Store) ListLeads(ctx context.Context, f domain.LeadFilter) ([]domain.Lead, error) {
	var where []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if f.FranchiseID != "" {
		add("franchise_id", f.FranchiseID)
	}
	if f.Status != "" {
		add("status", string(f.Status))
	}
	if f.Type != "" {
		add("type", string(f.Type))
	}

	sql := `SELECT ` + leadColumns + ` FROM leads`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapErr("ListLeads", "lead", "", err)
	}
	defer rows.Close()
	out := []domain.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, mapErr("ListLeads", "lead", "", err)
		}
		out = append(out, l)
	}
	return out, mapErr("ListLeads", "lead", "", rows.Err())
}

func (s *Store) UpdateLeadStatus(ctx context.Context, id string, status domain.LeadStatus) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE leads SET status=$2 WHERE id=$1`, id, status)
	if err != nil {
		return mapErr("UpdateLeadStatus", "lead", id, err)
	}
	return notFoundIfNone(tag, "lead", id)
}

func (s *Store) CreateLegalProcess(ctx context.Context, p *domain.LegalProcess) (*domain.LegalProcess, error) {
	var raw any
	if len(p.Raw) > 0 {
		raw = string(p.Raw)
	}
	out := *p
	err := s.Pool.QueryRow(ctx, `INSERT INTO legal_process_leads (process_number, court, subject, raw, franchise_id)
		VALUES ($1, $2, $3, $4::jsonb, $5) RETURNING id`,
		p.ProcessNumber, p.Court, p.Subject, raw, p.FranchiseID).Scan(&out.ID)
	if err != nil {
		return nil, mapErr("CreateLegalProcess", "legal process", p.ProcessNumber, err)
	}
	return &out, nil
}

// --- Finance ---

func (s *Store) CreateFinancialLog(ctx context.Context, e *domain.FinancialLog) (*domain.FinancialLog, error) {
	out := *e
	err := s.Pool.QueryRow(ctx, `INSERT INTO financial_logs (type, category, amount, description, date, franchise_id, auction_id)
		VALUES ($1, $2, $3::numeric, $4, $5::date, $6, $7) RETURNING id, created_at`,
		e.Type, e.Category, e.Amount.String(), e.Description, e.Date, e.FranchiseID, e.AuctionID).
		Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, mapErr("CreateFinancialLog", "financial log", "", err)
	}
	return &out, nil
}

func (s *Store) ListFinancialLogs(ctx context.Context, f domain.FinanceFilter) ([]domain.FinancialLog, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.FranchiseID != "" {
		add("franchise_id = $%d", f.FranchiseID)
	}
	if f.From != "" {
		add("date >= $%d::date", f.From)
	}
	if f.To != "" {
		add("date <= $%d::date", f.To)
	}

	sql := `SELECT id, type, category, amount::text, description, date::text, franchise_id, auction_id, created_at FROM financial_logs`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := s.Pool.Query(ctx, sql+" ORDER BY date DESC, created_at DESC", args...)
	if err != nil {
		return nil, mapErr("ListFinancialLogs", "financial log", "", err)
	}
	defer rows.Close()

	out := []domain.FinancialLog{}
	for rows.Next() {
		var e domain.FinancialLog
		var amount string
		if err := rows.Scan(&e.ID, &e.Type, &e.Category, &amount, &e.Description, &e.Date,
			&e.FranchiseID, &e.AuctionID, &e.CreatedAt); err != nil {
			return nil, mapErr("ListFinancialLogs", "financial log", "", err)
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, mapErr("ListFinancialLogs", "financial log", e.ID, err)
		}
		out = append(out, e)
	}
	return out, mapErr("ListFinancialLogs", "financial log", "", rows.Err())
}

// --- Training ---

func (s *Store) ListTrainings(ctx context.Context) ([]domain.TrainingContent, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, title, description, type, url, points FROM trainings ORDER BY title`)
	if err != nil {
		return nil, mapErr("ListTrainings", "training", "", err)
	}
	defer rows.Close()
	out := []domain.TrainingContent{}
	for rows.Next() {
		var t domain.TrainingContent
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Type, &t.URL, &t.Points); err != nil {
			return nil, mapErr("ListTrainings", "training", "", err)
		}
		out = append(out, t)
	}
	return out, mapErr("ListTrainings", "training", "", rows.Err())
}

func (s *Store) GetTraining(ctx context.Context, id string) (*domain.TrainingContent, error) {
	var t domain.TrainingContent
	err := s.Pool.QueryRow(ctx, `SELECT id, title, description, type, url, points FROM trainings WHERE id=$1`, id).
		Scan(&t.ID, &t.Title, &t.Description, &t.Type, &t.URL, &t.Points)
	if err != nil {
		return nil, mapErr("GetTraining", "training", id, err)
	}
	return &t, nil
}

func (s *Store) CreateTraining(ctx context.Context, t *domain.TrainingContent) (*domain.TrainingContent, error) {
	out := *t
	err := s.Pool.QueryRow(ctx, `INSERT INTO trainings (title, description, type, url, points)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`, t.Title, t.Description, t.Type, t.URL, t.Points).Scan(&out.ID)
	if err != nil {
		return nil, mapErr("CreateTraining", "training", "", err)
	}
	return &out, nil
}

func (s *Store) CreateCompletion(ctx context.Context, c *domain.TrainingCompletion) error {
	_, err := s.Pool.Exec(ctx, `INSERT INTO training_completions (user_id, training_id, score, completed_at)
		VALUES ($1, $2, $3, $4)`, c.UserID, c.TrainingID, c.Score, c.CompletedAt)
	return mapErr("CreateCompletion", "training completion", "", err)
}

func (s *Store) ListCompletions(ctx context.Context) ([]domain.TrainingCompletion, error) {
	rows, err := s.Pool.Query(ctx, `SELECT user_id, training_id, score, completed_at FROM training_completions`)
	if err != nil {
		return nil, mapErr("ListCompletions", "training completion", "", err)
	}
	defer rows.Close()
	out := []domain.TrainingCompletion{}
	for rows.Next() {
		var c domain.TrainingCompletion
		if err := rows.Scan(&c.UserID, &c.TrainingID, &c.Score, &c.CompletedAt); err != nil {
			return nil, mapErr("ListCompletions", "training completion", "", err)
		}
		out = append(out, c)
	}
	return out, mapErr("ListCompletions", "training completion", "", rows.Err())
}

// --- Credentials ---

func (s *Store) GetCredential(ctx context.Context, email string) (*domain.Credential, error) {
	email = strings.ToLower(email)
	var c domain.Credential
	err := s.Pool.QueryRow(ctx,
		`SELECT user_id, email, password_hash, failed_attempts, locked_until FROM credentials WHERE email=$1`, email,
	).Scan(&c.UserID, &c.Email, &c.PasswordHash, &c.FailedAttempts, &c.LockedUntil)
	if err != nil {
		return nil, mapErr("GetCredential", "credential", email, err)
	}
	return &c, nil
}

func (s *Store) SaveCredential(ctx context.Context, c *domain.Credential) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO credentials (email, user_id, password_hash, failed_attempts, locked_until)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			password_hash = EXCLUDED.password_hash,
			failed_attempts = EXCLUDED.failed_attempts,
			locked_until = EXCLUDED.locked_until`,
		strings.ToLower(c.Email), c.UserID, c.PasswordHash, c.FailedAttempts, c.LockedUntil)
	return mapErr("SaveCredential", "credential", c.Email, err)
}
