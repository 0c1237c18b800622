package mask

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// FakeGenerator produces replacement values that keep the shape of the
// original entity so masked text still reads naturally. Pools back the
// common catalog types; types without a pool get a synthesized value.
type FakeGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewFakeGenerator seeds a generator from the current time.
func NewFakeGenerator() *FakeGenerator {
	return &FakeGenerator{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

var fakePools = map[string][]string{
	"人名":  {"李明", "王芳", "张伟", "刘洋", "陈静", "杨磊", "赵敏", "周强", "吴秀英", "徐丽"},
	"地址":  {"幸福路12号", "建设大道88号", "人民广场3号", "和平街45号", "文化路678号"},
	"公司":  {"恒通科技有限公司", "远大贸易有限公司", "华信实业集团", "中天建设有限公司"},
	"民族":  {"汉", "满", "回", "壮", "苗"},
	"学校":  {"第一中学", "实验小学", "育才学校", "光明中学"},
	"职业":  {"工程师", "教师", "医生", "会计", "律师"},
	"国籍":  {"中国", "美国", "英国", "法国", "日本"},
	"籍贯":  {"北京", "上海", "广州", "成都", "武汉"},
	"车牌号": {"京A12345", "沪B67890", "粤C23456", "川D78901"},
}

// Generate returns one fake value for the given canonical type. Values of
// the pooled types are drawn uniformly; the synthesized types keep the
// format of the original when one is given.
func (g *FakeGenerator) Generate(typeName, original string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generate(typeName, original)
}

// GenerateBatch returns n fake values for the type, distinct from each
// other and from the originals where the pool allows. When the pool is
// smaller than n the values repeat.
func (g *FakeGenerator) GenerateBatch(typeName string, originals []string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	taken := make(map[string]bool, len(originals))
	for _, o := range originals {
		taken[o] = true
	}

	out := make([]string, len(originals))
	for i, original := range originals {
		value := g.generate(typeName, original)
		for attempt := 0; taken[value] && attempt < 8; attempt++ {
			value = g.generate(typeName, original)
		}
		taken[value] = true
		out[i] = value
	}
	return out
}

func (g *FakeGenerator) generate(typeName, original string) string {
	if pool, ok := fakePools[typeName]; ok {
		return pool[g.rng.Intn(len(pool))]
	}

	switch typeName {
	case "手机号":
		return "1" + string('3'+rune(g.rng.Intn(6))) + g.digits(9)
	case "身份证号", "证件号码":
		return g.digits(17) + string("0123456789X"[g.rng.Intn(11)])
	case "银行卡号":
		return "62" + g.digits(14)
	case "出生日期", "日期":
		year := 1950 + g.rng.Intn(55)
		return fmt.Sprintf("%d年%d月%d日", year, 1+g.rng.Intn(12), 1+g.rng.Intn(28))
	case "电子邮件":
		return g.lowercase(8) + "@example.com"
	case "QQ号码":
		return string('1'+rune(g.rng.Intn(9))) + g.digits(8)
	case "微信号":
		return "wx_" + g.lowercase(8)
	case "统一社会信用代码":
		return "91" + g.digits(6) + g.upperDigits(10)
	case "邮政编码":
		return g.digits(6)
	case "IP地址":
		return fmt.Sprintf("10.%d.%d.%d", g.rng.Intn(256), g.rng.Intn(256), 1+g.rng.Intn(254))
	case "MAC地址":
		parts := make([]string, 6)
		for i := range parts {
			parts[i] = fmt.Sprintf("%02X", g.rng.Intn(256))
		}
		return strings.Join(parts, ":")
	}

	// Unknown type: keep the tail of the original so the sentence still
	// parses, with a generic placeholder head.
	runes := []rune(original)
	if len(runes) == 0 {
		return "某"
	}
	return "某" + string(runes[len(runes)-1])
}

func (g *FakeGenerator) digits(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(byte('0' + g.rng.Intn(10)))
	}
	return b.String()
}

func (g *FakeGenerator) lowercase(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(byte('a' + g.rng.Intn(26)))
	}
	return b.String()
}

func (g *FakeGenerator) upperDigits(n int) string {
	const alphabet = "0123456789ABCDEFGHJKLMNPQRTUWXY"
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[g.rng.Intn(len(alphabet))])
	}
	return b.String()
}
