// Package storage реализует хранилище данных на основе PostgreSQL
// для управления правами пользователей (entitlements), записями аудита
// покупок, сохранёнными голосами и пользователями.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/retainvoice/voice-service/internal/models"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// ErrNotFound возвращается, когда запрошенная запись отсутствует.
var ErrNotFound = errors.New("not found")

// New создаёт подключение к PostgreSQL.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// ===== ENTITLEMENT METHODS =====

// ApplyPurchase атомарно зачисляет покупку: создаёт запись аудита по
// session_id и увеличивает счётчик purchased_units пользователя в одной
// транзакции. Если запись аудита для session_id уже существует, покупка
// считается дублем — возвращается applied=false, счётчик не меняется.
// Это единственная защита от двойного зачисления при повторной доставке
// webhook и при гонке webhook с компенсирующей записью клиента.
func (s *Storage) ApplyPurchase(ctx context.Context, p models.Purchase) (bool, error) {
	const op = "storage.ApplyPurchase"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	auditQuery := `INSERT INTO purchases (session_id, user_uid, units_granted, amount, source, status, created_at)
				   VALUES ($1, $2, $3, $4, $5, $6, now())
				   ON CONFLICT (session_id) DO NOTHING`
	res, err := tx.ExecContext(ctx, auditQuery,
		p.SessionID, p.UserUID, p.UnitsGranted, p.Amount, p.Source, models.PurchaseStatusCompleted)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		// Сессия уже зачислена ранее, коммитить нечего.
		if err = tx.Commit(); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		return false, nil
	}

	counterQuery := `INSERT INTO entitlements (user_uid, purchased_units, last_session_id, last_purchase_at, updated_at)
					 VALUES ($1, $2, $3, now(), now())
					 ON CONFLICT (user_uid) DO UPDATE
					 SET purchased_units  = entitlements.purchased_units + EXCLUDED.purchased_units,
					     last_session_id  = EXCLUDED.last_session_id,
					     last_purchase_at = now(),
					     updated_at       = now()`
	if _, err = tx.ExecContext(ctx, counterQuery, p.UserUID, p.UnitsGranted, p.SessionID); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// ReadEntitlement возвращает запись о правах пользователя.
// Если записи ещё нет, возвращается нулевая запись с purchased_units = 0:
// запись создаётся лениво при первой покупке.
func (s *Storage) ReadEntitlement(ctx context.Context, userUID string) (*models.Entitlement, error) {
	const op = "storage.ReadEntitlement"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_uid, purchased_units, last_session_id, last_purchase_at, updated_at
			  FROM entitlements WHERE user_uid = $1`
	row := s.DB.QueryRowContext(ctx, query, userUID)

	var result models.Entitlement
	err := row.Scan(&result.UserUID, &result.PurchasedUnits,
		&result.LastSessionID, &result.LastPurchaseAt, &result.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.Entitlement{UserUID: userUID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// ListPurchases возвращает записи аудита покупок пользователя,
// от новых к старым.
func (s *Storage) ListPurchases(ctx context.Context, userUID string) ([]*models.Purchase, error) {
	const op = "storage.ListPurchases"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT session_id, user_uid, units_granted, amount, source, status, created_at
			  FROM purchases
			  WHERE user_uid = $1
			  ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Purchase
	for rows.Next() {
		var item models.Purchase
		if err := rows.Scan(&item.SessionID, &item.UserUID, &item.UnitsGranted,
			&item.Amount, &item.Source, &item.Status, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ===== VOICE METHODS =====

// CreateVoice сохраняет метаданные клонированного голоса.
func (s *Storage) CreateVoice(ctx context.Context, voice models.Voice) error {
	const op = "storage.CreateVoice"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO voices (id, user_uid, provider_voice_id, name, created_at)
			  VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.DB.ExecContext(ctx, query,
		voice.ID, voice.UserUID, voice.ProviderVoiceID, voice.Name, voice.CreatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ReadVoice возвращает голос по его ID.
func (s *Storage) ReadVoice(ctx context.Context, id string) (*models.Voice, error) {
	const op = "storage.ReadVoice"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, provider_voice_id, name, created_at
			  FROM voices WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, id)

	var result models.Voice
	err := row.Scan(&result.ID, &result.UserUID, &result.ProviderVoiceID, &result.Name, &result.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// ListVoices возвращает все голоса пользователя.
func (s *Storage) ListVoices(ctx context.Context, userUID string) ([]*models.Voice, error) {
	const op = "storage.ListVoices"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, provider_voice_id, name, created_at
			  FROM voices
			  WHERE user_uid = $1
			  ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Voice
	for rows.Next() {
		var item models.Voice
		if err := rows.Scan(&item.ID, &item.UserUID, &item.ProviderVoiceID,
			&item.Name, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountVoices подсчитывает количество голосов пользователя.
func (s *Storage) CountVoices(ctx context.Context, userUID string) (int, error) {
	const op = "storage.CountVoices"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*) FROM voices WHERE user_uid = $1`
	var count int
	if err := s.DB.QueryRowContext(ctx, query, userUID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// RemoveVoice удаляет голос пользователя по ID и возвращает количество удалённых строк.
func (s *Storage) RemoveVoice(ctx context.Context, id, userUID string) (int, error) {
	const op = "storage.RemoveVoice"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM voices WHERE id = $1 AND user_uid = $2`
	result, err := s.DB.ExecContext(ctx, query, id, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ===== USER METHODS =====

// RegisterUser сохраняет нового пользователя в базу данных и возвращает его UID.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (uid, username, email, password_hash, role, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING uid`
	var uid string
	err := s.DB.QueryRowContext(ctx, query,
		user.UID, user.Username, user.Email, user.PasswordHash, user.Role, time.Now()).Scan(&uid)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return uid, nil
}

// ReadUserByUsername возвращает пользователя по имени.
func (s *Storage) ReadUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.ReadUserByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, username, email, password_hash, role, created_at
			  FROM users WHERE username = $1`
	row := s.DB.QueryRowContext(ctx, query, username)

	var result models.User
	err := row.Scan(&result.UID, &result.Username, &result.Email,
		&result.PasswordHash, &result.Role, &result.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}
