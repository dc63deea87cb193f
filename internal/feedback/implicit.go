package feedback

import (
	"gorm.io/datatypes"

	"netmatch/internal/model"
)

// 隐式反馈的固定置信度。
const (
	confidenceSend    = 0.7
	confidenceAccept  = 0.9
	confidenceReject  = 0.6
	confidenceMeeting = 0.8
)

// MeetingRating 按会面时长换算评分：>=30 分钟 5，>=15 分钟 4，否则 3。
func MeetingRating(minutes int) int {
	switch {
	case minutes >= 30:
		return 5
	case minutes >= 15:
		return 4
	default:
		return 3
	}
}

// Implicit 从行为推导隐式反馈；不产生反馈的行为类型或缺少目标用户时返回 false。
func Implicit(b model.BehaviorEvent) (model.Feedback, bool) {
	if b.TargetUserID == "" {
		return model.Feedback{}, false
	}
	f := model.Feedback{
		UserID:           b.UserID,
		TargetUserID:     b.TargetUserID,
		EventID:          b.EventID,
		IsImplicit:       true,
		DimensionRatings: datatypes.NewJSONType(model.DimensionRatings{}),
		CreatedAt:        b.CreatedAt,
	}
	switch b.Type {
	case model.BehaviorSendConnection:
		f.Type, f.Rating, f.Confidence = model.FeedbackConnectionInterest, model.IntPtr(4), confidenceSend
	case model.BehaviorAcceptConnection:
		f.Type, f.Rating, f.Confidence = model.FeedbackConnectionAccepted, model.IntPtr(5), confidenceAccept
	case model.BehaviorRejectConnection:
		f.Type, f.Rating, f.Confidence = model.FeedbackConnectionRejected, model.IntPtr(2), confidenceReject
	case model.BehaviorAttendMeeting:
		minutes := 0
		if m := b.Context.Data().Meeting; m != nil {
			minutes = m.DurationMinutes
		}
		f.Type, f.Rating, f.Confidence = model.FeedbackMeetingCompleted, model.IntPtr(MeetingRating(minutes)), confidenceMeeting
	default:
		return model.Feedback{}, false
	}
	return f, true
}
