package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"coldstart-inference/internal/handlers"
	"coldstart-inference/pkg/lambda"
	"coldstart-inference/pkg/server"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"
)

// The container is built on the first invocation and reused while the
// execution environment stays warm. A failed build is retried by the next
// invocation.
var manager = lambda.GetConnectionManager()

// handlerCache holds the predict handler built for the current container
type handlerCache struct {
	mu        sync.Mutex
	container *server.Container
	predict   *handlers.PredictHandler
}

// get returns the handler for container, building it when the container
// changes
func (c *handlerCache) get(container *server.Container) *handlers.PredictHandler {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.predict == nil || c.container != container {
		c.predict = handlers.NewPredictHandler(
			container.Models,
			container.Telemetry,
			container.Config.Model.PredictionFormat,
			container.Logger,
		)
		c.container = container
	}
	return c.predict
}

var predictHandlers handlerCache

func handler(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	container, err := manager.GetContainer(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to initialize container")
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       `{"error": "model unavailable"}`,
		}, nil
	}

	inv := lambda.InvocationFromContext(ctx, container.Config.Function)
	resp := predictHandlers.get(container).Handle(ctx, lambda.FromAPIGateway(event), inv)
	return resp.APIGateway(), nil
}

// shutdown runs when the execution environment is spun down
func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := manager.Cleanup(ctx); err != nil {
		logrus.WithError(err).Warn("Cleanup on shutdown failed")
	}
}

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	awslambda.StartWithOptions(handler, awslambda.WithEnableSIGTERM(shutdown))
}
