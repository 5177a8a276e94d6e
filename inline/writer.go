// Package inline writes resolved styles back into elements.
package inline

import (
	"strings"

	"go.uber.org/zap"

	"inliner/cascade"
	"inliner/dom"
)

// DefaultIgnore lists elements which never get style attribute.
var DefaultIgnore = []string{"html", "head", "title", "meta", "link", "script"}

// Writer sets style attributes from resolved table.
type Writer struct {
	ignore map[string]struct{}
	log    *zap.Logger
}

// NewWriter creates writer skipping elements with listed tag names (case
// insensitive). Nil ignore list means DefaultIgnore.
func NewWriter(ignore []string, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	if ignore == nil {
		ignore = DefaultIgnore
	}
	w := &Writer{
		ignore: make(map[string]struct{}, len(ignore)),
		log:    log.Named("inline"),
	}
	for _, tag := range ignore {
		w.ignore[strings.ToLower(tag)] = struct{}{}
	}
	return w
}

// Write replaces style attribute of every element in the table with
// serialized winning declarations. Returns number of elements styled.
func (w *Writer) Write(table *cascade.Table) int {
	var count int
	for n, props := range table.All() {
		if _, skip := w.ignore[strings.ToLower(n.Data)]; skip {
			w.log.Debug("Element ignored", zap.String("element", n.Data))
			continue
		}
		dom.SetAttr(n, "style", Serialize(props))
		count++
	}
	return count
}

// Serialize joins properties as "name:value" pairs with ";" in table order.
// Priority is not written.
func Serialize(props *cascade.Properties) string {
	var sb strings.Builder
	for name, v := range props.AllFromFront() {
		if sb.Len() > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(name)
		sb.WriteByte(':')
		sb.WriteString(v.Value)
	}
	return sb.String()
}
