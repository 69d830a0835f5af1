package compile

import "github.com/hatlonely/rse/executable"

// CompileResult 编译结果
// Compiled 的算子可以重复枚举而没有额外代价，Incompatible 的算子每次枚举都会重新计算，
// 作为连接内侧这类需要反复读取的输入时要先物化
type CompileResult struct {
	provider   executable.Provider
	compatible bool
}

func Compiled(p executable.Provider) CompileResult {
	return CompileResult{provider: p, compatible: true}
}

func Incompatible(p executable.Provider) CompileResult {
	return CompileResult{provider: p}
}

func (r CompileResult) Provider() executable.Provider { return r.provider }
func (r CompileResult) IsCompatible() bool            { return r.compatible }
