package classroom_client

const (
	DefaultBaseURL = "http://localhost:8000"

	AuthorizationHeader = "Authorization"
)

const (
	CreateProblemEndpoint      = "/api/createProblem"
	PeekProblemEndpoint        = "/api/peekProblem"
	GetProblemEndpoint         = "/api/getProblem"
	StudentAnswersEndpoint     = "/api/studentAnswers"
	GetStudentAnswersEndpoint  = "/api/getStudentAnswers"
	QuestionStatusEndpoint     = "/api/questionStatus"
	EndQuestionSessionEndpoint = "/api/endQuestionSession"
	DeleteQuestionEndpoint     = "/api/deleteQuestion/"
	SubmitCodeEndpoint         = "/api/submitCode"
)
