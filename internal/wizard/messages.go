// ABOUTME: User-facing texts posted by the wizard.
// ABOUTME: Russian wording matches what Loop users see in the chat.

package wizard

import (
	"fmt"

	"github.com/2389/taskbridge/internal/deadline"
	"github.com/2389/taskbridge/internal/session"
)

// Reaction added to messages that were appended to the task.
const appendedEmoji = "white_check_mark"

const (
	msgUseCard       = "Пожалуйста, выберите вариант в карточке выше или нажмите «Отмена»."
	msgAskCustomDate = "Введите дату дедлайна в формате YYYY-MM-DD, например 2025-11-13."
	msgAutoFinished  = "(Автозавершение диалога)"
	msgNoDeadline    = "без дедлайна"
)

func cardText(s session.Session) string {
	switch s.Stage {
	case session.StageAwaitingProject:
		return fmt.Sprintf("Выберите проект для задачи \"%s\":", s.Title)
	case session.StageAwaitingBoard:
		return fmt.Sprintf("Выберите доску в проекте \"%s\":", s.ProjectTitle)
	case session.StageAwaitingColumn:
		return fmt.Sprintf("Выберите колонку на доске \"%s\":", s.BoardTitle)
	case session.StageAwaitingAssignee:
		return fmt.Sprintf("Выберите ответственного за задачу \"%s\":", s.Title)
	case session.StageAwaitingDeadline:
		return fmt.Sprintf("Выберите дедлайн для задачи \"%s\":", s.Title)
	}
	return ""
}

func chosenText(stage session.Stage, label string) string {
	switch stage {
	case session.StageAwaitingProject:
		return "Проект: " + label
	case session.StageAwaitingBoard:
		return "Доска: " + label
	case session.StageAwaitingColumn:
		return "Колонка: " + label
	case session.StageAwaitingAssignee:
		return "Ответственный: " + label
	case session.StageAwaitingDeadline:
		return "Дедлайн: " + label
	}
	return label
}

func autoChosenText(stage session.Stage, label string) string {
	switch stage {
	case session.StageAwaitingBoard:
		return fmt.Sprintf("Доска: %s (единственная в проекте)", label)
	case session.StageAwaitingColumn:
		return fmt.Sprintf("Колонка: %s (единственная на доске)", label)
	}
	return chosenText(stage, label)
}

func noOptionsText(s session.Session) string {
	switch s.Stage {
	case session.StageAwaitingProject:
		return "Не найдено ни одного доступного вам проекта. Создание задачи отменено."
	case session.StageAwaitingBoard:
		return fmt.Sprintf("В проекте \"%s\" нет досок. Создание задачи отменено.", s.ProjectTitle)
	case session.StageAwaitingColumn:
		return fmt.Sprintf("На доске \"%s\" нет колонок. Создание задачи отменено.", s.BoardTitle)
	case session.StageAwaitingAssignee:
		return fmt.Sprintf("В проекте \"%s\" нет участников. Создание задачи отменено.", s.ProjectTitle)
	}
	return "Нет вариантов для выбора. Создание задачи отменено."
}

func loadFailedText(err error) string {
	return fmt.Sprintf("Не удалось получить данные из YouGile: %v", err)
}

func createFailedText(err error) string {
	return fmt.Sprintf("Не удалось создать задачу в YouGile: %v", err)
}

func commentFailedText(err error) string {
	return fmt.Sprintf("Не удалось добавить сообщение в описание задачи: %v", err)
}

func invalidDateText(input string) string {
	return fmt.Sprintf("Не удалось разобрать дату \"%s\". Используйте формат YYYY-MM-DD, например 2025-11-13.", input)
}

func cancelledText(s session.Session) string {
	return fmt.Sprintf("Хорошо, создание задачи \"%s\" отменено.", s.Title)
}

func expiredText(s session.Session) string {
	return fmt.Sprintf("Диалог создания задачи \"%s\" завершён по таймауту, задача не создана.", s.Title)
}

func activeText(s session.Session) string {
	return fmt.Sprintf("Задача \"%s\" создана: %s\n"+
		"Все следующие сообщения в этом треде будут добавлены в описание задачи. "+
		"Нажмите «Завершить», когда закончите.", s.Title, s.TaskURL)
}

func closedActiveText(s session.Session) string {
	return fmt.Sprintf("Диалог по задаче \"%s\" завершён.", s.Title)
}

// deadlineText renders the chosen deadline for summaries.
func deadlineText(s session.Session) string {
	if s.Deadline == nil || s.Deadline.IsNone() {
		return msgNoDeadline
	}
	if deadline.IsSymbolic(s.DeadlineChoice) {
		return fmt.Sprintf("%s (%s)", deadline.Label(s.DeadlineChoice), s.Deadline.Display())
	}
	return s.Deadline.Display()
}

// Summary is the final report posted when a dialog finishes.
func Summary(s session.Session) string {
	text := fmt.Sprintf("Задача \"%s\" создана в проекте: %s, доска: %s, ответственный: %s, дедлайн: %s.",
		s.Title, s.ProjectTitle, s.BoardTitle, s.AssigneeLabel, deadlineText(s))
	if s.TaskURL != "" {
		text += "\nСсылка: " + s.TaskURL
	}
	return text
}
