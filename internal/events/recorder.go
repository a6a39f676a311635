package events

import "sync"

// Recorder 把事件保存在内存里，测试时替代 NATS
type Recorder struct {
	mu       sync.Mutex
	subjects []string
}

func (r *Recorder) record(subject string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, subject)
}

func (r *Recorder) PublishMatch(subject string, _ MatchEvent)       { r.record(subject) }
func (r *Recorder) PublishPurchase(subject string, _ PurchaseEvent) { r.record(subject) }
func (r *Recorder) PublishPoints(PointsEvent)                       { r.record(SubjectPointsAdjusted) }
func (r *Recorder) Close()                                          {}

// Subjects 按发布顺序返回主题
func (r *Recorder) Subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.subjects...)
}
