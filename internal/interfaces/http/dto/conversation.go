package dto

import "encoding/json"

// TextToSpeechRequest 文本转语音请求
type TextToSpeechRequest struct {
	Text    string         `json:"text" binding:"required,max=5000"`
	VoiceID string         `json:"voiceId" binding:"required,voice_id"`
	Options *SpeechOptions `json:"options,omitempty"`
}

// SpeechOptions 语音合成参数
type SpeechOptions struct {
	ModelID       string          `json:"model_id,omitempty"`
	VoiceSettings json.RawMessage `json:"voice_settings,omitempty"`
}
