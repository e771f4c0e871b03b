// Command lambda serves the API from AWS Lambda behind API Gateway.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/prperemyshlev/postoptima-api/internal/app"
	"github.com/prperemyshlev/postoptima-api/internal/config"
	"go.uber.org/zap"
)

var ginLambda *ginadapter.GinLambda

func init() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	infra, err := app.NewInfrastructure(ctx, *cfg)
	if err != nil {
		log.Fatalf("Failed to initialize infrastructure: %v", err)
	}

	router, err := app.NewRouter(infra, cfg)
	if err != nil {
		infra.Logger().Fatal("Failed to build router", zap.Error(err))
	}

	ginLambda = ginadapter.New(router)
}

func handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return ginLambda.ProxyWithContext(ctx, req)
}

func main() {
	lambda.Start(handler)
}
