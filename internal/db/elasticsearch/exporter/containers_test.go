//go:build integration

package exporter

import (
	"context"
	"fmt"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"time"
)

const port = "9200/tcp"

func startElasticSearchContainer(
	ctx context.Context,
	logger *zap.Logger,
) (
	elasticSearchURI string,
	stopContainer func(),
	err error,
) {
	childCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	newNetwork, err := network.New(childCtx)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create network: %w", err)
	}
	networkName := newNetwork.Name
	logger.Info("Network Name", zap.String("networkName", networkName))

	req := testcontainers.ContainerRequest{
		Image:        "docker.elastic.co/elasticsearch/elasticsearch:8.10.2",
		ExposedPorts: []string{port},
		Env: map[string]string{
			"discovery.type":         "single-node",
			"xpack.security.enabled": "false",
			"ES_JAVA_OPTS":           "-Xms512m -Xmx512m",
		},
		WaitingFor: wait.ForHTTP("/").WithPort(port).WithStartupTimeout(3 * time.Minute),
		Networks:   []string{networkName},
	}

	elasticSearchContainer, err := testcontainers.GenericContainer(childCtx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to start container: %w", err)
	}

	stopContainer = func() {
		if err := elasticSearchContainer.Terminate(context.Background()); err != nil {
			logger.Error("Failed to terminate container", zap.Error(err))
		}
		if err := newNetwork.Remove(context.Background()); err != nil {
			logger.Error("Failed to remove network", zap.Error(err))
		}
	}

	host, err := elasticSearchContainer.Host(childCtx)
	if err != nil {
		stopContainer()
		return "", nil, fmt.Errorf("failed to get container host: %w", err)
	}

	p, err := elasticSearchContainer.MappedPort(childCtx, port)
	if err != nil {
		stopContainer()
		return "", nil, fmt.Errorf("failed to get container port: %w", err)
	}

	elasticSearchURI = fmt.Sprintf("http://%s:%s", host, p.Port())
	logger.Info("Elasticsearch URI", zap.String("elasticSearchURI", elasticSearchURI))
	return elasticSearchURI, stopContainer, nil
}
