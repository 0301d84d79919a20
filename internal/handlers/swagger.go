package handlers

// @title Cold Start Inference API
// @version 1.0
// @description Single-record model predictions with per-invocation telemetry

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8081
// @BasePath /

// @tag.name predict
// @tag.description Model inference

// @tag.name health
// @tag.description Service and model status
