// Package command parses the line grammar of the interactive console:
//
//	Start_Alarm(<id>): Group(<group>) <seconds> <message>
//	Change_Alarm(<id>): Group(<group>) <seconds> <message>
//	Cancel_Alarm(<id>)
//	View_Alarms
package command
