package provider

import "google.golang.org/genai"

// SceneListSchema はシーン配列のレスポンス形状です。
var SceneListSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"sceneNumber":       {Type: genai.TypeInteger},
			"action":            {Type: genai.TypeString},
			"consistentContext": {Type: genai.TypeString},
			"fullPrompt":        {Type: genai.TypeString},
		},
		Required: []string{"sceneNumber", "action", "fullPrompt"},
	},
}

// CastSchema はキャラクター配列のレスポンス形状です。
var CastSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":        {Type: genai.TypeString},
			"gender":      {Type: genai.TypeString},
			"age":         {Type: genai.TypeString},
			"description": {Type: genai.TypeString},
		},
		Required: []string{"name", "description"},
	},
}

// ImageAnalysisSchema は参照画像解析のレスポンス形状です。
var ImageAnalysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"styleDescription":     {Type: genai.TypeString},
		"characterDescription": {Type: genai.TypeString},
	},
	Required: []string{"styleDescription", "characterDescription"},
}
