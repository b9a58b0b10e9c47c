package geo

import (
	"regexp"
	"strings"
)

var provinceAbbreviations = map[string]string{
	"서울특별시":   "서울",
	"부산광역시":   "부산",
	"대구광역시":   "대구",
	"인천광역시":   "인천",
	"광주광역시":   "광주",
	"대전광역시":   "대전",
	"울산광역시":   "울산",
	"세종특별자치시": "세종",
	"경기도":     "경기",
	"강원도":     "강원",
	"강원특별자치도": "강원",
	"충청북도":    "충북",
	"충청남도":    "충남",
	"전라북도":    "전북",
	"전북특별자치도": "전북",
	"전라남도":    "전남",
	"경상북도":    "경북",
	"경상남도":    "경남",
	"제주특별자치도": "제주",
}

// buildingNumber matches a trailing lot or building number such as "6" or "12-3".
var buildingNumber = regexp.MustCompile(`^\d+(-\d+)?$`)

// FormatShortAddress abbreviates the leading province and drops a trailing
// building number. Addresses of two tokens or fewer keep their last token.
func FormatShortAddress(address string) string {
	tokens := strings.Fields(address)
	if len(tokens) == 0 {
		return ""
	}

	if short, ok := provinceAbbreviations[tokens[0]]; ok {
		tokens[0] = short
	}

	if len(tokens) > 2 && buildingNumber.MatchString(tokens[len(tokens)-1]) {
		tokens = tokens[:len(tokens)-1]
	}

	return strings.Join(tokens, " ")
}
