package assessment

const (
	SkillListening = "listening"
	SkillReading   = "reading"
	SkillWriting   = "writing"
	SkillSpeaking  = "speaking"
)

// Skills lists the four tested skills in the order they appear on a test report form.
var Skills = []string{SkillListening, SkillReading, SkillWriting, SkillSpeaking}

func IsSkill(s string) bool {
	for _, k := range Skills {
		if k == s {
			return true
		}
	}
	return false
}
