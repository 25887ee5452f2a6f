package model

import "strings"

// Transcript speaker labels are fixed per language rather than routed
// through the i18n bundle so that the derivation stays a pure function of
// its inputs.
var speakerLabels = map[Language]map[Speaker]string{
	LangEN: {
		SpeakerUser:    "Student",
		SpeakerPartner: "Partner",
	},
	LangDE: {
		SpeakerUser:    "Student",
		SpeakerPartner: "Gesprächspartner",
	},
}

// Transcript renders messages as a human-readable plain-text transcript,
// one "Label: text" line per message. System entries never appear in the
// output. The same messages and language always produce the same string.
func Transcript(messages []Message, lang Language) string {
	labels := speakerLabels[lang]
	var sb strings.Builder
	for _, m := range messages {
		if m.Speaker == SpeakerSystem {
			continue
		}
		label, ok := labels[m.Speaker]
		if !ok {
			label = string(m.Speaker)
		}
		sb.WriteString(label)
		sb.WriteString(": ")
		sb.WriteString(m.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}
