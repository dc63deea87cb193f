package storage

import (
	"time"

	"gorm.io/datatypes"

	"netmatch/internal/model"
)

func datatypesContext(c model.BehaviorContext) datatypes.JSONType[model.BehaviorContext] {
	return datatypes.NewJSONType(c)
}

func newInsight(userID string, confidence float64, expires time.Time) model.AlgorithmInsight {
	return model.AlgorithmInsight{
		UserID:     userID,
		Type:       model.InsightRejectionPattern,
		Payload:    datatypes.NewJSONType(model.InsightPayload{RejectionPattern: &model.AttributePatternPayload{SampleSize: 3}}),
		Confidence: confidence,
		ExpiresAt:  expires,
	}
}
