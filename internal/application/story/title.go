package story

import "strings"

// DefaultTitle 无法从正文提取标题时使用
const DefaultTitle = "New Story"

// titleNoise 需要从首行去掉的修饰符，按顺序替换
var titleNoise = []string{"Title:", `"`, "#", "*", "![]", "(", ")"}

// ExtractTitle 取正文首行作为标题
// 必须作用于合并封面图之前的纯文本，否则图片地址会混进标题
func ExtractTitle(text string) string {
	line := text
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	for _, tok := range titleNoise {
		line = strings.ReplaceAll(line, tok, "")
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return DefaultTitle
	}
	return line
}

// MergeBody 将封面图以 markdown 形式放在正文前
func MergeBody(text, imageURL string) string {
	if imageURL == "" {
		return text
	}
	return "![](" + imageURL + ")\n\n" + text
}
