package mask

import (
	"regexp"
	"sort"
)

// fixedType is one pattern-extractable semantic type. RE2 has no lookaround,
// so the patterns that the source data guarded with (?<!\d) / (?!\d) carry a
// digitBounded flag instead: a match flanked by an ASCII digit is discarded.
type fixedType struct {
	pattern      *regexp.Regexp
	digitBounded bool
}

// fixedTypes maps the canonical pattern-extractable labels to their
// extraction rules. Labels outside this set go through similarity
// resolution and, when available, the model-backed extractor.
var fixedTypes = map[string]fixedType{
	// 15 or 18 digit resident ID numbers.
	"身份证号": {
		pattern:      regexp.MustCompile(`[1-9]\d{5}(?:18|19|20)\d{2}(?:0[1-9]|1[0-2])(?:0[1-9]|[12]\d|3[01])\d{3}[0-9Xx]|[1-9]\d{7}(?:0[1-9]|1[0-2])(?:0[1-9]|[12]\d|3[01])\d{3}`),
		digitBounded: true,
	},
	// Dates in common year/month/day spellings.
	"出生日期": {
		pattern: regexp.MustCompile(`(?:19|20)\d{2}[-/年.](?:0?[1-9]|1[0-2])[-/月.](?:0?[1-9]|[12]\d|3[01])日?`),
	},
	// Ethnic group names.
	"民族": {
		pattern: regexp.MustCompile(`[汉满蒙回藏维壮苗彝傣傈僳佤拉祜布朗白纳西哈尼黎景颇达斡尔仫佬东乡撒拉毛南仡佬锡伯柯尔克孜土家哈萨克俄罗斯鄂温克德昂保安裕固京塔塔尔独龙鄂伦春赫哲门巴珞巴基诺]族`),
	},
	// Passports and other 11-digit document numbers.
	"证件号码": {
		pattern:      regexp.MustCompile(`[A-Z][0-9]{8}|[0-9]{11}`),
		digitBounded: true,
	},
	// Mainland mobile numbers.
	"手机号": {
		pattern:      regexp.MustCompile(`1[3-9]\d{9}`),
		digitBounded: true,
	},
	// Email addresses.
	"电子邮件": {
		pattern: regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
	},
	// 13-19 digit payment card numbers of the major networks.
	"银行卡号": {
		pattern:      regexp.MustCompile(`62[0-9]{14,17}|4[0-9]{12}(?:[0-9]{3})?|5[1-5][0-9]{14}|6(?:011|5[0-9][0-9])[0-9]{12}|3[47][0-9]{13}|3(?:0[0-5]|[68][0-9])[0-9]{11}|(?:2131|1800|35\d{3})\d{11}`),
		digitBounded: true,
	},
	// Vehicle plates, including new-energy plates.
	"车牌号": {
		pattern: regexp.MustCompile(`[京津沪渝冀豫云辽黑湘皖鲁新苏浙赣鄂桂甘晋蒙陕吉闽贵粤青藏川宁琼使领][A-Z][A-HJ-NP-Z0-9]{4}[A-HJ-NP-Z0-9挂学警港澳]|[京津沪渝冀豫云辽黑湘皖鲁新苏浙赣鄂桂甘晋蒙陕吉闽贵粤青藏川宁琼使领][A-Z][0-9]{5}[DF]`),
	},
	// 5-11 digit QQ numbers.
	"QQ号码": {
		pattern:      regexp.MustCompile(`[1-9][0-9]{4,10}`),
		digitBounded: true,
	},
	// 6-20 character WeChat IDs.
	"微信号": {
		pattern: regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9_-]{5,19}`),
	},
	// 18-character unified social credit codes.
	"统一社会信用代码": {
		pattern: regexp.MustCompile(`[0-9A-HJ-NPQRTUWXY]{2}\d{6}[0-9A-HJ-NPQRTUWXY]{10}`),
	},
	// 6-digit postal codes.
	"邮政编码": {
		pattern:      regexp.MustCompile(`\d{6}`),
		digitBounded: true,
	},
	// IPv4 and full-form IPv6 addresses.
	"IP地址": {
		pattern: regexp.MustCompile(`(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)|(?:[0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}`),
	},
	// Colon or dash separated MAC addresses.
	"MAC地址": {
		pattern: regexp.MustCompile(`(?:[0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}`),
	},
}

// aliasTypes maps common caller spellings onto canonical labels without
// going through similarity resolution.
var aliasTypes = map[string]string{
	"姓名": "人名",
	"人物": "人名",
	"日期": "出生日期",
	"电话": "手机号",
	"邮箱": "电子邮件",
}

// FixedTypeLabels returns the canonical pattern-extractable labels in
// stable order.
func FixedTypeLabels() []string {
	labels := make([]string, 0, len(fixedTypes))
	for label := range fixedTypes {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// IsFixedType reports whether label is extracted by pattern.
func IsFixedType(label string) bool {
	_, ok := fixedTypes[label]
	return ok
}

// extractFixed returns the surface matches for one fixed type, in order of
// appearance, without duplicates.
func extractFixed(label, text string) []string {
	ft, ok := fixedTypes[label]
	if !ok {
		return nil
	}

	var values []string
	seen := make(map[string]struct{})
	for _, loc := range ft.pattern.FindAllStringIndex(text, -1) {
		if ft.digitBounded && digitAdjacent(text, loc[0], loc[1]) {
			continue
		}
		v := text[loc[0]:loc[1]]
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return values
}

// digitAdjacent reports whether the match at [start,end) touches an ASCII
// digit on either side. Stands in for the unsupported (?<!\d) / (?!\d).
func digitAdjacent(text string, start, end int) bool {
	if start > 0 && text[start-1] >= '0' && text[start-1] <= '9' {
		return true
	}
	if end < len(text) && text[end] >= '0' && text[end] <= '9' {
		return true
	}
	return false
}
