// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为 ExtrudeFlow 的任务分发 span 与 HTTP 链路提供全局 TracerProvider
// 和 MeterProvider。禁用时仅注册传播器，不连接任何外部服务。
package telemetry
