// Package config 提供 ExtrudeFlow 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → EXTRUDEFLOW_* 环境变量 的顺序叠加，
// Watcher 轮询配置文件并在变更后重新加载，服务据此在下一个伸缩周期
// 应用新的工作池上下限。
package config
