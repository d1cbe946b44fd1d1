package warehouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/go-viper/mapstructure/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/leapstack-labs/sqlrunner/pkg/core"
	"github.com/leapstack-labs/sqlrunner/pkg/dialect"
)

// BigQuery schemas are datasets, managed through the API rather than DDL.
var (
	createSchemaStmt = regexp.MustCompile("(?is)(^|\\W)CREATE\\s+SCHEMA\\s+(?:IF\\s+NOT\\s+EXISTS\\s+)?`([^`]+)`(?:;?\\s*)$")
	dropSchemaStmt   = regexp.MustCompile("(?is)(^|\\W)DROP\\s+SCHEMA\\s+(?:IF\\s+EXISTS\\s+)?`([^`]+)`(\\s+CASCADE)?(?:;|$)")
)

// BigQueryParams are the BigQuery settings read from auth.params.
type BigQueryParams struct {
	CredentialsPath string `mapstructure:"credentials_path"`
	Location        string `mapstructure:"location"`
}

// Datasets is the dataset administration used by BigQueryWarehouse.
type Datasets interface {
	Create(ctx context.Context, id string) error
	Delete(ctx context.Context, id string, contents bool) error
	List(ctx context.Context) ([]string, error)
	Empty(ctx context.Context, id string) (bool, error)
}

// Dataset errors that statement interception tolerates.
var (
	ErrDatasetExists   = errors.New("dataset already exists")
	ErrDatasetNotFound = errors.New("dataset not found")
)

// BigQueryWarehouse implements Warehouse for BigQuery.
type BigQueryWarehouse struct {
	exec     Executor
	datasets Datasets
	logger   *slog.Logger
}

// NewBigQueryWarehouse combines a statement executor with dataset
// administration.
func NewBigQueryWarehouse(exec Executor, datasets Datasets, logger *slog.Logger) *BigQueryWarehouse {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &BigQueryWarehouse{exec: exec, datasets: datasets, logger: logger}
}

func openBigQuery(ctx context.Context, cfg core.AuthConfig, opts Options) (Warehouse, error) {
	if opts.ColdRun {
		return NewBigQueryWarehouse(NewColdExecutor(opts.Out), noDatasets{}, opts.Logger), nil
	}

	var params BigQueryParams
	if err := mapstructure.Decode(cfg.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid bigquery params: %w", err)
	}
	var clientOpts []option.ClientOption
	if params.CredentialsPath != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(params.CredentialsPath))
	}
	opts.Logger.Debug("connecting", slog.String("type", dialect.TypeBigQuery), slog.String("project", cfg.Database))

	client, err := bigquery.NewClient(ctx, cfg.Database, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery: failed to create client: %w", err)
	}
	if params.Location != "" {
		client.Location = params.Location
	}
	bq := &bigQueryClient{client: client}
	return NewBigQueryWarehouse(bq, bq, opts.Logger), nil
}

// Exec implements Warehouse. CREATE SCHEMA and DROP SCHEMA statements are
// run as dataset calls and removed; nothing is sent when only whitespace
// remains.
func (w *BigQueryWarehouse) Exec(ctx context.Context, stmt string) error {
	_, err := w.Query(ctx, stmt)
	return err
}

// Query implements Warehouse.
func (w *BigQueryWarehouse) Query(ctx context.Context, stmt string) ([]core.Row, error) {
	stmt, err := w.interceptSchemas(ctx, stmt)
	if err != nil {
		return nil, err
	}
	if strings.Trim(strings.TrimSpace(stmt), ";") == "" {
		return nil, nil
	}
	return w.exec.Query(ctx, stmt)
}

func (w *BigQueryWarehouse) interceptSchemas(ctx context.Context, stmt string) (string, error) {
	var firstErr error
	record := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}
	stmt = dropSchemaStmt.ReplaceAllStringFunc(stmt, func(m string) string {
		sub := dropSchemaStmt.FindStringSubmatch(m)
		if err := w.datasets.Delete(ctx, sub[2], sub[3] != ""); err != nil && !errors.Is(err, ErrDatasetNotFound) {
			record(fmt.Errorf("drop dataset %s: %w", sub[2], err))
		}
		return sub[1]
	})
	stmt = createSchemaStmt.ReplaceAllStringFunc(stmt, func(m string) string {
		sub := createSchemaStmt.FindStringSubmatch(m)
		if err := w.datasets.Create(ctx, sub[2]); err != nil && !errors.Is(err, ErrDatasetExists) {
			record(fmt.Errorf("create dataset %s: %w", sub[2], err))
		}
		return sub[1]
	})
	return stmt, firstErr
}

// CleanSchemas drops datasets starting with prefix, and empty datasets
// other than _mat ones.
func (w *BigQueryWarehouse) CleanSchemas(ctx context.Context, prefix string) error {
	ids, err := w.datasets.List(ctx)
	if err != nil {
		return fmt.Errorf("list datasets: %w", err)
	}
	for _, id := range ids {
		drop := strings.HasPrefix(id, prefix)
		if !drop && !strings.HasSuffix(id, dialect.MatSuffix) {
			empty, err := w.datasets.Empty(ctx, id)
			if err != nil {
				return fmt.Errorf("list tables of %s: %w", id, err)
			}
			drop = empty
		}
		if !drop {
			continue
		}
		w.logger.Info("dropping dataset", slog.String("dataset", id))
		if err := w.datasets.Delete(ctx, id, true); err != nil && !errors.Is(err, ErrDatasetNotFound) {
			return fmt.Errorf("drop dataset %s: %w", id, err)
		}
	}
	return nil
}

// CleanSpecificSchemas implements Warehouse.
func (w *BigQueryWarehouse) CleanSpecificSchemas(ctx context.Context, schemas []string) error {
	for _, s := range schemas {
		if err := w.datasets.Delete(ctx, s, true); err != nil && !errors.Is(err, ErrDatasetNotFound) {
			return fmt.Errorf("drop dataset %s: %w", s, err)
		}
	}
	return nil
}

// SaveDependencies is not supported on BigQuery and only logs.
func (w *BigQueryWarehouse) SaveDependencies(_ context.Context, _ string, _ []core.Edge) error {
	w.logger.Warn("saving dependencies is not supported on BigQuery")
	return nil
}

// Close implements Warehouse.
func (w *BigQueryWarehouse) Close() error { return w.exec.Close() }

// bigQueryClient adapts *bigquery.Client to Executor and Datasets.
type bigQueryClient struct {
	client *bigquery.Client
}

func (c *bigQueryClient) Exec(ctx context.Context, stmt string) error {
	_, err := c.Query(ctx, stmt)
	return err
}

func (c *bigQueryClient) Query(ctx context.Context, stmt string) ([]core.Row, error) {
	it, err := c.client.Query(stmt).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	var out []core.Row
	for {
		var values []bigquery.Value
		err := it.Next(&values)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		row := make(core.Row, len(values))
		for i, v := range values {
			row[i] = v
		}
		out = append(out, row)
	}
	return out, nil
}

func (c *bigQueryClient) Close() error { return c.client.Close() }

func (c *bigQueryClient) Create(ctx context.Context, id string) error {
	return apiError(c.client.Dataset(id).Create(ctx, &bigquery.DatasetMetadata{Location: c.client.Location}))
}

func (c *bigQueryClient) Delete(ctx context.Context, id string, contents bool) error {
	ds := c.client.Dataset(id)
	if contents {
		return apiError(ds.DeleteWithContents(ctx))
	}
	return apiError(ds.Delete(ctx))
}

func (c *bigQueryClient) List(ctx context.Context) ([]string, error) {
	var ids []string
	it := c.client.Datasets(ctx)
	for {
		ds, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return ids, nil
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, ds.DatasetID)
	}
}

func (c *bigQueryClient) Empty(ctx context.Context, id string) (bool, error) {
	_, err := c.client.Dataset(id).Tables(ctx).Next()
	if errors.Is(err, iterator.Done) {
		return true, nil
	}
	return false, err
}

// apiError maps conflict and not-found responses to sentinel errors.
func apiError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusConflict:
			return fmt.Errorf("%w: %s", ErrDatasetExists, gerr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrDatasetNotFound, gerr.Message)
		}
	}
	return err
}

// noDatasets is the dataset administration of a cold run.
type noDatasets struct{}

func (noDatasets) Create(context.Context, string) error        { return nil }
func (noDatasets) Delete(context.Context, string, bool) error  { return nil }
func (noDatasets) List(context.Context) ([]string, error)      { return nil, nil }
func (noDatasets) Empty(context.Context, string) (bool, error) { return false, nil }
