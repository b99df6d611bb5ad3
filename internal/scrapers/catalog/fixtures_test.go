package catalog

import (
	"fmt"
	"strings"
)

func headerRow(number, title string) string {
	titleCell := ""
	if title != "" {
		titleCell = fmt.Sprintf(`<a href="#"><span class="boldtxt">%s</span></a> ( 4 Units)`, title)
	}
	return fmt.Sprintf(
		`<tr><td class="crsheader"></td><td class="crsheader">%s</td><td class="crsheader" colspan="5">%s</td></tr>`,
		number, titleCell,
	)
}

func cells(values ...string) string {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(`<td class="brdr">`)
		b.WriteString(v)
		b.WriteString(`</td>`)
	}
	return b.String()
}

func sectionRow(meetingType, sectionID, section, days, time, building, room, teacher string) string {
	return `<tr class="sectxt">` + cells(
		"", "100", sectionID, meetingType, section, days, time, building, room,
		fmt.Sprintf(`<a href="#">%s</a>`, teacher), "12", "300", "",
	) + `</tr>`
}

func examRow(meetingType, date, day, time, building, room string) string {
	return `<tr class="nonenrtxt">` + cells("", "", meetingType, date, day, time, building, room) + `</tr>`
}

func fixturePage(rows ...string) []string {
	return rows
}
