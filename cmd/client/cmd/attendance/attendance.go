package attendance

import (
	"github.com/spf13/cobra"
)

// AttendanceCmd - родительская команда для отметок присутствия
var AttendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Отметки присутствия",
	Long:  `Отметка сотрудников, сводка за сегодня и очередь неотправленных отметок.`,
}
