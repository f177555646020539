package bootstrapper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"
	"net/http"
	"strings"
	"time"
)

const retries = 30
const waitTime = 5

const resourceAlreadyExists = "resource_already_exists_exception"

type Bootstrapper struct {
	esClient *elasticsearch.Client
	logger   *zap.Logger
	retries  int
	delay    time.Duration
}

func NewBootstrapper(esClient *elasticsearch.Client, logger *zap.Logger) *Bootstrapper {
	return &Bootstrapper{
		esClient: esClient,
		logger:   logger,
		retries:  retries,
		delay:    waitTime * time.Second,
	}
}

// BootstrapElasticsearch waits for the cluster and creates the span index if it does not exist yet.
func (bs *Bootstrapper) BootstrapElasticsearch(spanIndexName string) error {
	if err := bs.waitForElasticsearch(bs.retries, bs.delay); err != nil {
		return fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}

	if err := bs.createIndex(spanIndexName, spanIndex); err != nil {
		return fmt.Errorf("error creating span index: %w", err)
	}

	return nil
}

func (bs *Bootstrapper) waitForElasticsearch(maxRetries int, delay time.Duration) error {
	for i := 0; i < maxRetries; i++ {
		res, err := bs.esClient.Info()
		if err == nil {
			res.Body.Close()
			if res.StatusCode == http.StatusOK {
				bs.logger.Info("Elasticsearch is available")
				return nil
			}
		}
		bs.logger.Warn(fmt.Sprintf("Elasticsearch not available (attempt %d/%d), retrying...", i+1, maxRetries))

		time.Sleep(delay)
	}

	return fmt.Errorf("Elasticsearch is not available after %d attempts", maxRetries)
}

func (bs *Bootstrapper) createIndex(indexName string, index map[string]interface{}) error {
	body, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("error marshaling index input during bootstrap: %w", err)
	}

	res, err := bs.esClient.Indices.Create(
		indexName,
		bs.esClient.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("error creating index during bootstrap %s: %w", indexName, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		if strings.Contains(res.String(), resourceAlreadyExists) {
			bs.logger.Info("Index already exists", zap.String("index_name", indexName))
			return nil
		}
		return fmt.Errorf("error response for index %s: %s", indexName, res.String())
	}

	bs.logger.Info("Successfully created index", zap.String("index_name", indexName))
	return nil
}
