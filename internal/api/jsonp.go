package api

import "bytes"

var emptyArray = []byte("[]")

// NormalizeJSON 剥掉 JSONP/回调包装，取出最外层数组或对象。
// 先出现 '[' 取数组，否则取对象；"null"、"OK"、CallbackList(null) 之类视为空数组；其余原样返回。
func NormalizeJSON(body []byte) []byte {
	lb := bytes.IndexByte(body, '[')
	rb := bytes.LastIndexByte(body, ']')
	lo := bytes.IndexByte(body, '{')
	ro := bytes.LastIndexByte(body, '}')
	if lb >= 0 && rb > lb && (lo < 0 || lb < lo) {
		return body[lb : rb+1]
	}
	if lo >= 0 && ro > lo {
		return body[lo : ro+1]
	}
	trimmed := bytes.TrimSpace(body)
	if bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("OK")) {
		return emptyArray
	}
	if bytes.Contains(body, []byte("CallbackList(null)")) || bytes.Contains(body, []byte("(null)")) {
		return emptyArray
	}
	return body
}
