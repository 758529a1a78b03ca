//go:build nopredefined

package lumps

// DefaultPredefined 在 nopredefined 构建中返回空集合。
func DefaultPredefined() []Predefined {
	return nil
}
