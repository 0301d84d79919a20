package lambda

import (
	"context"
	"testing"
	"time"

	"coldstart-inference/internal/config"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
)

var testFunction = config.FunctionConfig{Name: "local-fn", Version: "$LATEST"}

func TestInvocationFromContext(t *testing.T) {
	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "aws-req-1"})
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	inv := InvocationFromContext(ctx, testFunction)

	if inv.RequestID() != "aws-req-1" {
		t.Errorf("RequestID = %s, want aws-req-1", inv.RequestID())
	}
	if inv.FunctionName() != "local-fn" || inv.FunctionVersion() != "$LATEST" {
		t.Errorf("Outside Lambda the configured identity is used, got %s/%s", inv.FunctionName(), inv.FunctionVersion())
	}
	if remaining := inv.RemainingTimeMillis(); remaining <= 0 || remaining > 3000 {
		t.Errorf("RemainingTimeMillis = %d, want within (0, 3000]", remaining)
	}
}

func TestInvocationRemainingTime(t *testing.T) {
	now := time.Date(2024, 5, 8, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		deadline time.Time
		want     int64
	}{
		{name: "no deadline", deadline: time.Time{}, want: 0},
		{name: "future", deadline: now.Add(1500 * time.Millisecond), want: 1500},
		{name: "expired", deadline: now.Add(-time.Second), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := NewInvocation("r", testFunction, tt.deadline)
			inv.now = func() time.Time { return now }
			if got := inv.RemainingTimeMillis(); got != tt.want {
				t.Errorf("RemainingTimeMillis = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAPIGatewayConversion(t *testing.T) {
	req := FromAPIGateway(events.APIGatewayProxyRequest{
		HTTPMethod: "POST",
		Path:       "/predict",
		Body:       `{"features":[1,2,3]}`,
	})
	if req.Method != "POST" || string(req.Body) != `{"features":[1,2,3]}` {
		t.Errorf("Unexpected request %+v", req)
	}

	resp := (&Response{StatusCode: 200, Body: []byte(`{"prediction": 7}`)}).APIGateway()
	if resp.StatusCode != 200 || resp.Body != `{"prediction": 7}` {
		t.Errorf("Unexpected response %+v", resp)
	}
}
