package main

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	transferenciaapp "github.com/finanzas/liquidaciones/internal/application/transferencia"
	"github.com/finanzas/liquidaciones/internal/domain/transferencia"
)

func transferenciasCommand() *cobra.Command {
	var (
		estado   string
		pageSize int
	)
	cmd := &cobra.Command{
		Use:     "transferencias",
		Aliases: []string{"tr"},
		Short:   "Work the transfer request queue",
	}
	cmd.PersistentFlags().StringVar(&estado, "estado", "", "filter by state")
	cmd.PersistentFlags().IntVar(&pageSize, "page-size", 50, "rows listed")

	listReq := func() transferenciaapp.ListRequest {
		req := transferenciaapp.ListRequest{Page: 1, PageSize: pageSize}
		if estado != "" {
			e := transferencia.Estado(estado)
			req.Estado = &e
		}
		return req
	}
	acciones := func() *transferenciaapp.Acciones {
		return transferenciaapp.NewAcciones(client, listReq(), transferencia.DefaultArchivoRules())
	}

	listar := &cobra.Command{
		Use:   "listar",
		Short: "List transfer requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := acciones().Listar(cmd.Context())
			if err != nil {
				return err
			}
			printSolicitudes(cmd.OutOrStdout(), list)
			return nil
		},
	}

	// transition builds a command acting on one request with a text argument
	transition := func(use, short, flag string, required bool,
		run func(a *transferenciaapp.Acciones, cmd *cobra.Command, id uuid.UUID, text string) ([]transferenciaapp.SolicitudResponse, error),
	) *cobra.Command {
		var text string
		c := &cobra.Command{
			Use:   use + " ID",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid id %q: %w", args[0], err)
				}
				list, err := run(acciones(), cmd, id, text)
				if err != nil {
					return err
				}
				printSolicitudes(cmd.OutOrStdout(), list)
				return nil
			},
		}
		c.Flags().StringVar(&text, flag, "", flag)
		if required {
			_ = c.MarkFlagRequired(flag)
		}
		return c
	}

	aprobar := transition("aprobar", "Approve a pending request", "comentario", false,
		func(a *transferenciaapp.Acciones, cmd *cobra.Command, id uuid.UUID, text string) ([]transferenciaapp.SolicitudResponse, error) {
			return a.Aprobar(cmd.Context(), id, text)
		})
	rechazar := transition("rechazar", "Reject a pending request", "comentario", true,
		func(a *transferenciaapp.Acciones, cmd *cobra.Command, id uuid.UUID, text string) ([]transferenciaapp.SolicitudResponse, error) {
			return a.Rechazar(cmd.Context(), id, text)
		})
	cancelar := transition("cancelar", "Cancel a request", "motivo", true,
		func(a *transferenciaapp.Acciones, cmd *cobra.Command, id uuid.UUID, text string) ([]transferenciaapp.SolicitudResponse, error) {
			return a.Cancelar(cmd.Context(), id, text)
		})

	cmd.AddCommand(listar, crearCommand(listReq), editarCommand(listReq),
		aprobar, rechazar, cancelar, comprobanteCommand(acciones))
	return cmd
}

func comprobanteCommand(acciones func() *transferenciaapp.Acciones) *cobra.Command {
	var (
		numero     string
		fecha      string
		referencia string
		obs        string
		archivo    string
		editar     bool
	)
	cmd := &cobra.Command{
		Use:   "comprobante ID",
		Short: "Register or edit the bank receipt of an approved request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			f, err := time.Parse(time.DateOnly, fecha)
			if err != nil {
				return fmt.Errorf("invalid --fecha %q: %w", fecha, err)
			}
			req := transferenciaapp.ComprobanteRequest{
				NumeroRegistro:     numero,
				FechaTransferencia: f,
				ReferenciaBancaria: referencia,
				Observaciones:      obs,
			}
			var upload *transferenciaapp.ArchivoUpload
			if archivo != "" {
				if upload, err = readUpload(archivo); err != nil {
					return err
				}
			}

			a := acciones()
			call := a.RegistrarComprobante
			if editar {
				call = a.EditarComprobante
			}
			list, err := call(cmd.Context(), id, req, upload)
			if err != nil {
				return err
			}
			printSolicitudes(cmd.OutOrStdout(), list)
			return nil
		},
	}
	cmd.Flags().StringVar(&numero, "numero", "", "transfer registration number")
	cmd.Flags().StringVar(&fecha, "fecha", "", "transfer date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&referencia, "referencia", "", "bank reference")
	cmd.Flags().StringVar(&obs, "observaciones", "", "notes")
	cmd.Flags().StringVar(&archivo, "archivo", "", "receipt file (pdf, jpg, png)")
	cmd.Flags().BoolVar(&editar, "editar", false, "edit an already registered receipt")
	_ = cmd.MarkFlagRequired("numero")
	_ = cmd.MarkFlagRequired("fecha")
	return cmd
}

func readUpload(path string) (*transferenciaapp.ArchivoUpload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading receipt file: %w", err)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mt
	}
	return &transferenciaapp.ArchivoUpload{
		Nombre:   filepath.Base(path),
		MimeType: mimeType,
		Data:     data,
	}, nil
}

func printSolicitudes(w io.Writer, list []transferenciaapp.SolicitudResponse) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNÚMERO\tESTADO\tMONTO\tPARES\tCREADA")
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			s.ID, s.Numero, s.Estado, s.MontoTotal.StringFixed(2), len(s.Pares), s.CreatedAt.Format(time.DateOnly))
	}
	_ = tw.Flush()
}
