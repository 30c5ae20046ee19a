package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/spanner"
	"google.golang.org/grpc/codes"

	"github.com/light-bringer/metasync-service/internal/app/propagation/contracts"
	"github.com/light-bringer/metasync-service/internal/models/m_error_log"
	"github.com/light-bringer/metasync-service/internal/pkg/committer"
)

// maxAppendAttempts bounds the compare-and-set loop of one append.
const maxAppendAttempts = 8

// ErrorLogRepo stores a shop's error log as one JSON array row guarded by a version
// column. Appends are compare-and-set: the row is only rewritten if its version is the
// one the entries were appended to.
type ErrorLogRepo struct {
	client    *spanner.Client
	committer *committer.Committer
	model     *m_error_log.Model
	shopID    string
}

var _ contracts.ErrorLog = (*ErrorLogRepo)(nil)

// NewErrorLogRepo creates a new ErrorLogRepo for one shop.
func NewErrorLogRepo(client *spanner.Client, comm *committer.Committer, shopID string) *ErrorLogRepo {
	return &ErrorLogRepo{
		client:    client,
		committer: comm,
		model:     m_error_log.NewModel(),
		shopID:    shopID,
	}
}

// Entries returns the log, oldest first. A shop without a log row has no entries.
func (r *ErrorLogRepo) Entries(ctx context.Context) ([]string, error) {
	data, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	return decodeEntries(data.Entries)
}

// Append adds entries with compare-and-set, retrying on version conflicts.
func (r *ErrorLogRepo) Append(ctx context.Context, entries ...string) error {
	if len(entries) == 0 {
		return nil
	}

	for attempt := 1; ; attempt++ {
		data, err := r.read(ctx)
		if err != nil {
			return err
		}
		current, err := decodeEntries(data.Entries)
		if err != nil {
			return err
		}
		encoded, err := encodeEntries(append(current, entries...))
		if err != nil {
			return err
		}

		plan := committer.NewPlan()
		plan.Add(r.model.UpsertMut(&m_error_log.Data{
			ShopID:  r.shopID,
			Entries: encoded,
			Version: data.Version + 1,
		}))

		err = r.committer.ApplyWithVersionCheck(ctx, committer.VersionGuard{
			Table:    m_error_log.TableName,
			Key:      r.model.Key(r.shopID),
			Column:   m_error_log.Version,
			Expected: data.Version,
		}, plan)
		if err == nil {
			return nil
		}
		if !errors.Is(err, committer.ErrVersionConflict) || attempt == maxAppendAttempts {
			return fmt.Errorf("failed to append to error log: %w", err)
		}
	}
}

// Clear empties the log. The version still advances so in-flight appends conflict.
func (r *ErrorLogRepo) Clear(ctx context.Context) error {
	return r.committer.ApplyWithReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		version, err := committer.ReadVersion(ctx, txn, m_error_log.TableName, r.model.Key(r.shopID), m_error_log.Version)
		if err != nil {
			return err
		}
		return txn.BufferWrite([]*spanner.Mutation{r.model.UpsertMut(&m_error_log.Data{
			ShopID:  r.shopID,
			Entries: "[]",
			Version: version + 1,
		})})
	})
}

func (r *ErrorLogRepo) read(ctx context.Context) (*m_error_log.Data, error) {
	row, err := r.client.Single().ReadRow(ctx, m_error_log.TableName, r.model.Key(r.shopID),
		[]string{m_error_log.Entries, m_error_log.Version})
	if err != nil {
		if spanner.ErrCode(err) == codes.NotFound {
			return &m_error_log.Data{ShopID: r.shopID}, nil
		}
		return nil, fmt.Errorf("failed to read error log: %w", err)
	}

	data := &m_error_log.Data{ShopID: r.shopID}
	var entries spanner.NullString
	if err := row.Columns(&entries, &data.Version); err != nil {
		return nil, fmt.Errorf("failed to parse error log: %w", err)
	}
	data.Entries = entries.StringVal
	return data, nil
}

func decodeEntries(raw string) ([]string, error) {
	if raw == "" || raw == "null" {
		return []string{}, nil
	}
	var entries []string
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("error log is not a JSON array of strings: %w", err)
	}
	return entries, nil
}

func encodeEntries(entries []string) (string, error) {
	if entries == nil {
		entries = []string{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("failed to encode error log: %w", err)
	}
	return string(b), nil
}
