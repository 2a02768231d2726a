// 版权所有 2024 ExtrudeFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供 HTTP/HTTPS 服务器生命周期管理，支持非阻塞启动与
优雅关闭。

# 核心类型

  - Manager：封装 net/http.Server，持有监听器与异步错误通道。
  - Config：监听地址、读写与空闲超时、请求头上限、关闭超时，
    以及可选的 *tls.Config（由 internal/tlsutil 构造）。

# 主要能力

  - 非阻塞启动：Start 在后台 goroutine 中运行服务，配置 TLS 时
    监听器自动升级。
  - 优雅关闭：Shutdown 在超时内排空请求，重复调用为空操作。
  - 错误传播：Errors() 返回异步错误通道，供调用方监控服务异常。
  - 地址查询：Addr 在启动后返回实际监听地址，便于 ":0" 随机端口。
*/
package server
