package enhance

import (
	"fmt"
	"strings"
)

const baseInstruction = `You are an expert resume writer. Rewrite the provided resume content so it is clear,
concise and achievement oriented. Keep every fact from the input, do not invent employers,
dates, numbers or skills. Return only the rewritten content without commentary or markdown fences.`

var sectionInstructions = map[string]string{
	"summary":        "Rewrite this professional summary as two to four sentences in the first person without pronouns.",
	"experience":     "Rewrite these work experience entries. Keep the same JSON structure and improve each description with strong action verbs.",
	"projects":       "Rewrite these project entries. Keep the same JSON structure and make each description state the problem, the approach and the result.",
	"skills":         "Clean up this skills list: fix capitalisation, merge duplicates and return a JSON array of strings.",
	"achievements":   "Rewrite these achievements as short, measurable statements and return a JSON array of strings.",
	"education":      "Normalise these education entries. Keep the same JSON structure.",
	"certifications": "Normalise these certification entries. Keep the same JSON structure.",
}

// BuildPrompt 组合通用指令、分区指令与原文。
func BuildPrompt(section, text string) string {
	instruction, ok := sectionInstructions[strings.ToLower(section)]
	if !ok {
		instruction = fmt.Sprintf("Improve the wording of this %q section.", section)
	}
	return baseInstruction + "\n\n" + instruction + "\n\nInput:\n" + text
}

// CleanOutput 去除模型可能添加的 markdown 代码块包裹。
func CleanOutput(s string) string {
	clean := strings.TrimSpace(s)
	if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
		if nl := strings.IndexByte(clean, '\n'); nl >= 0 && !strings.ContainsAny(clean[:nl], " \t") {
			clean = clean[nl+1:]
		}
		clean = strings.TrimSuffix(strings.TrimSpace(clean), "```")
	}
	return strings.TrimSpace(clean)
}
