// ABOUTME: Texts the bridge posts outside the wizard: the main menu, notices and the
// ABOUTME: channel default-project dialog.

package bridge

import "fmt"

const (
	msgCreatedFromChat = "Создано из Loop"

	msgSessionExpired = "Этот диалог уже завершён. Чтобы создать задачу, напишите: создай задачу <название>."
	msgStaleButton    = "Кнопка устарела. Начните создание задачи заново."
	msgAlreadyRunning = "В этом треде уже идёт создание задачи. Завершите или отмените его, чтобы начать новую."

	msgDefaultPrompt   = "Я только что добавлен в этот канал.\nХотите установить проект по умолчанию для этого чата?"
	msgDefaultNoAccess = "Не нашёл для вас доступных проектов в YouGile. Обратитесь к администратору."
	msgDefaultDeclined = "Ок, проект по умолчанию для этого чата не установлен. Буду спрашивать проект при создании задач."
	msgDefaultCleared  = "Проект по умолчанию для этого чата отключён. Буду спрашивать проект при создании задач."
	msgDefaultKept     = "Смена проекта по умолчанию отменена. Старое значение сохранено."
	msgDefaultLoadErr  = "Не удалось получить список проектов YouGile: %v"
	msgDefaultSaveErr  = "Не удалось сохранить проект по умолчанию: %v"

	msgMenu        = "Привет! Вот что я умею:"
	msgAskTitle    = "Пожалуйста, введите название задачи в этом треде."
	msgNameTheTask = "Назовите задачу:"
	msgMenuClosed  = "Диалог завершён."

	labelMenuCreate    = "Создать задачу"
	labelMenuShortcuts = "Показать быстрые команды"
	labelMenuDefault   = "Сменить проект по умолчанию"
	labelMenuClose     = "Завершить диалог"

	labelDefaultYes  = "Да, выбрать проект"
	labelDefaultNo   = "Нет, буду задавать проект отдельно"
	labelDefaultKeep = "Не менять"
	labelDefaultNone = "Не выбирать проект автоматически"
	labelSelect      = "Выберите вариант"
	labelCancel      = "Отмена"
	labelFinish      = "Завершить"
	labelRetry       = "Повторить"
)

func shortcutsText(botUsername string) string {
	return fmt.Sprintf("Быстрые команды:\n"+
		"- `@%[1]s создай задачу <название>` - сразу запустить мастер создания задачи в этом треде.\n"+
		"- `@%[1]s проект по умолчанию` - выбрать проект, с которого начинаются задачи этого канала.\n\n"+
		"После создания задачи всё, что вы напишете в треде, добавится к её описанию. "+
		"Главное меню открывается, если упомянуть бота без команды.", botUsername)
}

func creatingTaskText(title string) string {
	return fmt.Sprintf("Создаём задачу \"%s\"", title)
}

func defaultProjectUsedText(title string) string {
	return fmt.Sprintf("Проект по умолчанию для этого чата: %s", title)
}

func defaultSelectText(channelName, current string) string {
	if current == "" {
		current = "не установлен"
	}
	return fmt.Sprintf("Сейчас проект по умолчанию для чата \"%s\": %s\nВыберите новый проект:", channelName, current)
}

func defaultSetText(title string) string {
	return fmt.Sprintf("Проект по умолчанию для этого чата установлен: %s", title)
}
