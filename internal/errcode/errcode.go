package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：业务可恢复/告警类错误（例如绑定断开但仍可打印）
// - 5xxx：系统错误（需要中断流程）
const (
	OK                   = 0
	BrokenBinding        = 4001
	ConfirmationRequired = 4002
	InvalidSequenceValue = 4003
	ResourceMissing      = 4004
	InvalidRequest       = 4005
	SystemError          = 5000
)
